package tx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// counterStore is a minimal gate-bound store: one integer, snapshot by value.
type counterStore struct {
	WriteGuard
	mu sync.Mutex
	n  int
}

func (c *counterStore) Snapshot() (restore func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.n
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.n = n
	}
}

func (c *counterStore) Add(ctx context.Context, delta int) {
	defer c.Hold(ctx)()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n += delta
}

func (c *counterStore) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestMemoryRunner_RollbackRestoresSnapshot(t *testing.T) {
	store := &counterStore{}
	runner := NewMemoryRunner(store)

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		store.Add(ctx, 5)
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 0, store.Value())

	err = runner.RunInTx(context.Background(), func(ctx context.Context) error {
		store.Add(ctx, 5)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, store.Value())
}

// TestMemoryRunner_StandaloneWriteWaitsForOpenTx pins the isolation rule: a
// write issued outside a transaction blocks until the transaction finishes,
// so a rollback never swallows it.
func TestMemoryRunner_StandaloneWriteWaitsForOpenTx(t *testing.T) {
	store := &counterStore{}
	runner := NewMemoryRunner(store)

	written := make(chan struct{})
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		store.Add(ctx, 1)
		go func() {
			store.Add(context.Background(), 10)
			close(written)
		}()
		// The standalone write must still be parked at the gate when the
		// rollback below runs.
		select {
		case <-written:
			t.Error("standalone write landed inside an open transaction")
		case <-time.After(50 * time.Millisecond):
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("standalone write never completed")
	}
	require.Equal(t, 10, store.Value())
}
