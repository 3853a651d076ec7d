//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aliaspay/internal/identity/models"
	"aliaspay/internal/platform/postgres"
	"aliaspay/pkg/domain"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/testutil/containers"
)

const (
	aliceAddr = domain.Address("11000000000000000000000000000000000000000000000000000000000000aa")
	bobAddr   = domain.Address("22000000000000000000000000000000000000000000000000000000000000bb")
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.EnsureSchema(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE identities, reverse_lookups`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newIdentity(handle string, authority domain.Address) *models.Identity {
	identity, err := models.NewIdentity(handle, authority, models.Details{Bio: "hi"}, time.Now().UTC())
	s.Require().NoError(err)
	return identity
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	identity := s.newIdentity("alice", aliceAddr)
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, identity))

	found, err := s.store.FindByHandle(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(aliceAddr, found.Authority)
	s.Equal(aliceAddr, found.MainAddress)
	s.Equal("hi", found.Details.Bio)

	s.Run("duplicate handle conflicts", func() {
		err := s.store.CreateIfAvailable(s.ctx, s.newIdentity("alice", bobAddr))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown handle", func() {
		_, err := s.store.FindByHandle(s.ctx, "nobody")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestUpdate() {
	identity := s.newIdentity("alice", aliceAddr)
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, identity))

	identity.MainAddress = bobAddr
	identity.Details.Bio = "moved"
	identity.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.store.Update(s.ctx, identity))

	found, err := s.store.FindByHandle(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(bobAddr, found.MainAddress)
	s.Equal("moved", found.Details.Bio)

	s.Run("updating a missing identity", func() {
		err := s.store.Update(s.ctx, s.newIdentity("ghost", aliceAddr))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestReverseLookup() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.UpsertReverse(s.ctx, models.ReverseLookup{
		Address: aliceAddr, Handle: "alice", UpdatedAt: now,
	}))

	lookup, err := s.store.FindReverse(s.ctx, aliceAddr)
	s.Require().NoError(err)
	s.Equal("alice", lookup.Handle)

	s.Run("upsert replaces the handle", func() {
		s.Require().NoError(s.store.UpsertReverse(s.ctx, models.ReverseLookup{
			Address: aliceAddr, Handle: "alice2", UpdatedAt: now.Add(time.Second),
		}))
		lookup, err := s.store.FindReverse(s.ctx, aliceAddr)
		s.Require().NoError(err)
		s.Equal("alice2", lookup.Handle)
	})

	s.Run("unknown address", func() {
		_, err := s.store.FindReverse(s.ctx, bobAddr)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentUniqueHandle verifies the UNIQUE constraint arbitrates
// concurrent registrations of the same handle: exactly one insert wins.
func (s *PostgresStoreSuite) TestConcurrentUniqueHandle() {
	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.CreateIfAvailable(s.ctx, s.newIdentity("contended", aliceAddr))
		}()
	}
	wg.Wait()
	close(errs)

	var won, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, sentinel.ErrConflict):
			conflicted++
		default:
			s.T().Fatalf("unexpected error: %v", err)
		}
	}
	s.Equal(1, won)
	s.Equal(attempts-1, conflicted)
}
