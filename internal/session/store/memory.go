// Package store provides memory, Redis and Postgres persistence for
// authentication sessions. Every backend guarantees that flipping a session
// from active to consumed succeeds for exactly one caller.
package store

import (
	"context"
	"maps"
	"sync"
	"time"

	"aliaspay/internal/keyspace"
	"aliaspay/internal/session/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
)

// MemoryStore keeps sessions in a map with check-and-set consumption under
// one mutex.
type MemoryStore struct {
	tx.WriteGuard
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

func sessionKey(handle, sessionID string) string {
	return keyspace.Derive(keyspace.NamespaceSession, handle, sessionID).String()
}

// Snapshot captures current state for the memory transaction runner.
func (s *MemoryStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := maps.Clone(s.sessions)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sessions = sessions
	}
}

// Create inserts the session unless its (handle, id) slot is taken.
func (s *MemoryStore) Create(ctx context.Context, session *models.Session) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(session.Handle, session.ID)
	if _, exists := s.sessions[key]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[key] = *session
	return nil
}

func (s *MemoryStore) Find(_ context.Context, handle, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionKey(handle, sessionID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

// ConsumeIfActive flips the session to consumed. Exactly one caller observes
// nil; later callers get ErrAlreadyUsed.
func (s *MemoryStore) ConsumeIfActive(ctx context.Context, handle, sessionID string, now time.Time) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(handle, sessionID)
	session, ok := s.sessions[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !session.Active {
		return sentinel.ErrAlreadyUsed
	}
	session.Active = false
	session.ConsumedAt = &now
	s.sessions[key] = session
	return nil
}

// Reactivate re-arms a consumed session. Compensation path for backends
// outside the transfer transaction.
func (s *MemoryStore) Reactivate(ctx context.Context, handle, sessionID string) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(handle, sessionID)
	session, ok := s.sessions[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	session.Active = true
	session.ConsumedAt = nil
	s.sessions[key] = session
	return nil
}
