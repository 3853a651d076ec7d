package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsyncPublisher_DeliversThroughWorker(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewAsyncPublisher(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(store, pub.Inbox(), testLogger())
	go func() { _ = worker.Run(ctx) }()

	pub.Emit(ctx, Event{Action: ActionIdentityCreated, Handle: "alice"})

	require.Eventually(t, func() bool {
		events, err := store.ListByHandle(ctx, "alice")
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, ActionIdentityCreated, events[0].Action)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestAsyncPublisher_DropsWhenInboxFull(t *testing.T) {
	pub := NewAsyncPublisher(1)

	// No worker draining the inbox: the second emit must not block.
	pub.Emit(context.Background(), Event{Action: ActionPointsCredited, Handle: "alice"})

	done := make(chan struct{})
	go func() {
		pub.Emit(context.Background(), Event{Action: ActionPointsCredited, Handle: "alice"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
}

func TestInMemoryStore_ListIsolatesHandles(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{Action: ActionMappingSet, Handle: "alice"}))
	require.NoError(t, store.Append(ctx, Event{Action: ActionMappingSet, Handle: "bob"}))

	events, err := store.ListByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Handle)
}
