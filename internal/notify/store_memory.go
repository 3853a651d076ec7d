package notify

import (
	"context"
	"sync"
)

// InMemoryStore keeps events per handle. It doubles as a Sink so tests and
// single-process deployments can run without a broker.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]Event)
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Handle] = append(s.events[event.Handle], event)
	return nil
}

func (s *InMemoryStore) Publish(ctx context.Context, event Event) error {
	return s.Append(ctx, event)
}

func (s *InMemoryStore) ListByHandle(_ context.Context, handle string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[handle]...), nil
}
