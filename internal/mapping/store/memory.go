// Package store provides memory and Postgres persistence for handle mappings.
package store

import (
	"context"
	"maps"
	"sync"

	"aliaspay/internal/keyspace"
	"aliaspay/internal/mapping/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
)

type MemoryStore struct {
	tx.WriteGuard
	mu       sync.RWMutex
	mappings map[string]models.Mapping
}

func NewMemory() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]models.Mapping)}
}

func mappingKey(handle, mtype string) string {
	return keyspace.Derive(keyspace.NamespaceMapping, handle, mtype).String()
}

// Snapshot captures current state for the memory transaction runner.
func (s *MemoryStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings := maps.Clone(s.mappings)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mappings = mappings
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, mapping models.Mapping) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings[mappingKey(mapping.Handle, mapping.Type)] = mapping
	return nil
}

func (s *MemoryStore) Find(_ context.Context, handle, mtype string) (*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.mappings[mappingKey(handle, mtype)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &mapping, nil
}

func (s *MemoryStore) Delete(ctx context.Context, handle, mtype string) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mappingKey(handle, mtype)
	if _, ok := s.mappings[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.mappings, key)
	return nil
}
