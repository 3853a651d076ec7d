// Package store provides memory and Postgres persistence for transfer
// history.
package store

import (
	"context"
	"slices"
	"sync"

	"aliaspay/internal/transfer/models"
	"aliaspay/pkg/platform/tx"
)

// MemoryStore appends transfers to a per-sender slice, newest last.
type MemoryStore struct {
	tx.WriteGuard
	mu     sync.RWMutex
	nextID int64
	bySend map[string][]models.Transfer
}

func NewMemory() *MemoryStore {
	return &MemoryStore{bySend: make(map[string][]models.Transfer)}
}

// Snapshot captures current state for the memory transaction runner.
func (s *MemoryStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextID := s.nextID
	bySend := make(map[string][]models.Transfer, len(s.bySend))
	for k, v := range s.bySend {
		bySend[k] = slices.Clone(v)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.nextID = nextID
		s.bySend = bySend
	}
}

func (s *MemoryStore) Append(ctx context.Context, transfer *models.Transfer) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	transfer.ID = s.nextID
	s.bySend[transfer.SenderHandle] = append(s.bySend[transfer.SenderHandle], *transfer)
	return nil
}

// ListBySender returns one page, newest first. Page numbering starts at 1.
func (s *MemoryStore) ListBySender(_ context.Context, handle string, page, pageSize int) ([]models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.bySend[handle]
	total := len(all)

	start := (page - 1) * pageSize
	if start >= total {
		return []models.Transfer{}, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	// Stored oldest first; the page walks from the tail.
	out := make([]models.Transfer, 0, end-start)
	for i := total - 1 - start; i >= total-end; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
