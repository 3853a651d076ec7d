//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aliaspay/internal/platform/postgres"
	"aliaspay/internal/session/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/testutil/containers"
)

type PostgresSessionSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresSessionSuite(t *testing.T) {
	suite.Run(t, new(PostgresSessionSuite))
}

func (s *PostgresSessionSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.EnsureSchema(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresSessionSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE auth_sessions`)
	s.Require().NoError(err)
}

func (s *PostgresSessionSuite) create(handle, id string) {
	s.Require().NoError(s.store.Create(s.ctx, &models.Session{
		Handle:         handle,
		ID:             id,
		RequiredPoints: 1,
		Device:         "Chrome on Mac OS X",
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}))
}

func (s *PostgresSessionSuite) TestLifecycle() {
	s.create("alice", "sess-1")

	session, err := s.store.Find(s.ctx, "alice", "sess-1")
	s.Require().NoError(err)
	s.True(session.Active)
	s.Nil(session.ConsumedAt)

	s.Require().NoError(s.store.ConsumeIfActive(s.ctx, "alice", "sess-1", time.Now().UTC()))

	session, err = s.store.Find(s.ctx, "alice", "sess-1")
	s.Require().NoError(err)
	s.False(session.Active)
	s.NotNil(session.ConsumedAt)

	s.Run("consuming again", func() {
		err := s.store.ConsumeIfActive(s.ctx, "alice", "sess-1", time.Now().UTC())
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("reactivate re-arms the row", func() {
		s.Require().NoError(s.store.Reactivate(s.ctx, "alice", "sess-1"))

		session, err := s.store.Find(s.ctx, "alice", "sess-1")
		s.Require().NoError(err)
		s.True(session.Active)
		s.Nil(session.ConsumedAt)

		s.Require().ErrorIs(s.store.Reactivate(s.ctx, "alice", "sess-9"), sentinel.ErrNotFound)
	})

	s.Run("duplicate create conflicts", func() {
		err := s.store.Create(s.ctx, &models.Session{
			Handle: "alice", ID: "sess-1", Active: true, CreatedAt: time.Now().UTC(),
		})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("same id under another handle is fine", func() {
		s.create("bob", "sess-1")
	})

	s.Run("unknown session", func() {
		err := s.store.ConsumeIfActive(s.ctx, "alice", "missing", time.Now().UTC())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentConsume is the single-use guarantee under contention: exactly
// one of many concurrent consumers flips the row.
func (s *PostgresSessionSuite) TestConcurrentConsume() {
	s.create("alice", "contended")

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.ConsumeIfActive(s.ctx, "alice", "contended", time.Now().UTC())
		}()
	}
	wg.Wait()
	close(results)

	var consumed, alreadyUsed int
	for err := range results {
		switch {
		case err == nil:
			consumed++
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			alreadyUsed++
		default:
			s.T().Fatalf("unexpected error: %v", err)
		}
	}
	s.Equal(1, consumed)
	s.Equal(workers-1, alreadyUsed)
}
