// Package store provides memory and Postgres persistence for identity and
// reverse lookup records. Records are addressed by derived keys so both
// backends agree on what "the same record" means.
package store

import (
	"context"
	"maps"
	"sync"

	"aliaspay/internal/identity/models"
	"aliaspay/internal/keyspace"
	"aliaspay/pkg/domain"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
)

// MemoryStore keeps identities and reverse lookups in maps keyed by derived
// record keys. Safe for concurrent use.
type MemoryStore struct {
	tx.WriteGuard
	mu         sync.RWMutex
	identities map[string]models.Identity
	reverse    map[string]models.ReverseLookup
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]models.Identity),
		reverse:    make(map[string]models.ReverseLookup),
	}
}

func identityKey(handle string) string {
	return keyspace.Derive(keyspace.NamespaceIdentity, handle).String()
}

func reverseKey(addr domain.Address) string {
	return keyspace.Derive(keyspace.NamespaceReverse, addr.String()).String()
}

// Snapshot captures current state for the memory transaction runner.
func (s *MemoryStore) Snapshot() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identities := maps.Clone(s.identities)
	reverse := maps.Clone(s.reverse)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.identities = identities
		s.reverse = reverse
	}
}

// CreateIfAvailable inserts the identity unless the handle is taken.
func (s *MemoryStore) CreateIfAvailable(ctx context.Context, identity *models.Identity) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(identity.Handle)
	if _, exists := s.identities[key]; exists {
		return sentinel.ErrConflict
	}
	s.identities[key] = *identity
	return nil
}

func (s *MemoryStore) FindByHandle(_ context.Context, handle string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[identityKey(handle)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &identity, nil
}

// Update overwrites an existing identity record.
func (s *MemoryStore) Update(ctx context.Context, identity *models.Identity) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(identity.Handle)
	if _, ok := s.identities[key]; !ok {
		return sentinel.ErrNotFound
	}
	s.identities[key] = *identity
	return nil
}

// UpsertReverse writes the reverse lookup for an address. An existing record
// for the same address is overwritten; records for previous addresses are
// untouched.
func (s *MemoryStore) UpsertReverse(ctx context.Context, lookup models.ReverseLookup) error {
	defer s.Hold(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reverse[reverseKey(lookup.Address)] = lookup
	return nil
}

func (s *MemoryStore) FindReverse(_ context.Context, addr domain.Address) (*models.ReverseLookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lookup, ok := s.reverse[reverseKey(addr)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &lookup, nil
}
