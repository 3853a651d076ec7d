// Package store provides memory and Postgres persistence for points ledgers.
package store

import (
	"context"
	"maps"
	"sync"

	"aliaspay/internal/keyspace"
	"aliaspay/internal/points/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
	"aliaspay/pkg/requestcontext"
)

// MemoryStore keeps ledgers in a map keyed by derived record keys. Mutations
// are check-and-set under one mutex, so a debit can never race a concurrent
// debit past the balance.
type MemoryStore struct {
	tx.WriteGuard
	mu      sync.RWMutex
	ledgers map[string]models.Ledger
}

func NewMemory() *MemoryStore {
	return &MemoryStore{ledgers: make(map[string]models.Ledger)}
}

func ledgerKey(handle string) string {
	return keyspace.Derive(keyspace.NamespacePoints, handle).String()
}

// Snapshot captures current state for the memory transaction runner.
func (s *MemoryStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledgers := maps.Clone(s.ledgers)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ledgers = ledgers
	}
}

// Init seeds the ledger for a fresh handle.
func (s *MemoryStore) Init(ctx context.Context, handle string) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey(handle)
	if _, exists := s.ledgers[key]; exists {
		return sentinel.ErrConflict
	}
	s.ledgers[key] = *models.NewLedger(handle, requestcontext.Now(ctx))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, handle string) (*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, ok := s.ledgers[ledgerKey(handle)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ledger, nil
}

// Credit adds amount with saturation and returns the updated ledger.
func (s *MemoryStore) Credit(ctx context.Context, handle string, amount uint32) (*models.Ledger, error) {
	return s.mutate(ctx, handle, func(l *models.Ledger) error {
		l.Credit(amount, requestcontext.Now(ctx))
		return nil
	})
}

// DebitIfSufficient subtracts amount only when the balance covers it.
func (s *MemoryStore) DebitIfSufficient(ctx context.Context, handle string, amount uint32) (*models.Ledger, error) {
	return s.mutate(ctx, handle, func(l *models.Ledger) error {
		if l.Balance < amount {
			return sentinel.ErrInsufficient
		}
		l.Debit(amount, requestcontext.Now(ctx))
		return nil
	})
}

func (s *MemoryStore) mutate(ctx context.Context, handle string, fn func(*models.Ledger) error) (*models.Ledger, error) {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey(handle)
	ledger, ok := s.ledgers[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := fn(&ledger); err != nil {
		return nil, err
	}
	s.ledgers[key] = ledger
	return &ledger, nil
}
