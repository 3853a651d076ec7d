//go:build integration

package store

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"aliaspay/internal/platform/postgres"
	"aliaspay/internal/points/models"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.EnsureSchema(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE points_ledgers`)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Init(s.ctx, "alice"))
}

func (s *PostgresLedgerSuite) TestInitialGrant() {
	ledger, err := s.store.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(models.InitialPoints, ledger.Balance)
	s.Equal(uint64(models.InitialPoints)*models.PointValue, ledger.NativeValue)
}

func (s *PostgresLedgerSuite) TestCredit() {
	ledger, err := s.store.Credit(s.ctx, "alice", 50)
	s.Require().NoError(err)
	s.Equal(uint32(150), ledger.Balance)
	s.Equal(uint64(150)*models.PointValue, ledger.NativeValue)

	s.Run("credit clamps at the ceiling", func() {
		ledger, err := s.store.Credit(s.ctx, "alice", math.MaxUint32-100)
		s.Require().NoError(err)
		s.Equal(uint32(math.MaxUint32), ledger.Balance)
	})

	s.Run("unknown ledger", func() {
		_, err := s.store.Credit(s.ctx, "nobody", 1)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresLedgerSuite) TestDebitIfSufficient() {
	ledger, err := s.store.DebitIfSufficient(s.ctx, "alice", 40)
	s.Require().NoError(err)
	s.Equal(uint32(60), ledger.Balance)

	s.Run("short balance is rejected unchanged", func() {
		_, err := s.store.DebitIfSufficient(s.ctx, "alice", 61)
		s.Require().ErrorIs(err, sentinel.ErrInsufficient)

		ledger, err := s.store.Get(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(uint32(60), ledger.Balance)
	})

	s.Run("unknown ledger", func() {
		_, err := s.store.DebitIfSufficient(s.ctx, "nobody", 1)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentDebits drains the row from many goroutines; the conditional
// UPDATE must never let the balance go below zero.
func (s *PostgresLedgerSuite) TestConcurrentDebits() {
	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	// 100 initial points, 20 debits of 10: only 10 can succeed.
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.DebitIfSufficient(s.ctx, "alice", 10)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.Require().ErrorIs(err, sentinel.ErrInsufficient)
		}
	}
	s.Equal(10, succeeded)

	ledger, err := s.store.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(uint32(0), ledger.Balance)
}
