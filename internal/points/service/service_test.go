package service

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	identitymodels "aliaspay/internal/identity/models"
	"aliaspay/internal/points/models"
	"aliaspay/internal/points/store"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

type PointsServiceSuite struct {
	suite.Suite
	store      *store.MemoryStore
	identities *stubResolver
	service    *Service
}

func TestPointsServiceSuite(t *testing.T) {
	suite.Run(t, new(PointsServiceSuite))
}

const (
	aliceAuthority = domain.Address("11000000000000000000000000000000000000000000000000000000000000aa")
	strangerAddr   = domain.Address("22000000000000000000000000000000000000000000000000000000000000bb")
)

type stubResolver struct {
	identities map[string]*identitymodels.Identity
}

func (r *stubResolver) Resolve(_ context.Context, handle string) (*identitymodels.Identity, error) {
	identity, ok := r.identities[handle]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "handle is not registered")
	}
	return identity, nil
}

func (s *PointsServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.identities = &stubResolver{identities: map[string]*identitymodels.Identity{
		"alice": {Handle: "alice", Authority: aliceAuthority, MainAddress: aliceAuthority},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store, s.identities, WithLogger(logger))

	s.Require().NoError(s.service.Init(context.Background(), "alice"))
}

func (s *PointsServiceSuite) TestBalance_InitialGrant() {
	ledger, err := s.service.Balance(context.Background(), "alice")
	s.Require().NoError(err)
	s.Equal(models.InitialPoints, ledger.Balance)
	s.Equal(uint64(models.InitialPoints)*models.PointValue, ledger.NativeValue)
}

func (s *PointsServiceSuite) TestCredit() {
	ctx := context.Background()

	s.Run("authority can credit", func() {
		ledger, err := s.service.Credit(ctx, "alice", 50, aliceAuthority)
		s.Require().NoError(err)
		s.Equal(uint32(150), ledger.Balance)
		s.Equal(uint64(150)*models.PointValue, ledger.NativeValue)
	})

	s.Run("non-authority is rejected", func() {
		_, err := s.service.Credit(ctx, "alice", 50, strangerAddr)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("unknown handle is rejected", func() {
		_, err := s.service.Credit(ctx, "nobody", 50, aliceAuthority)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("credit saturates at the ceiling", func() {
		ledger, err := s.service.Credit(ctx, "alice", math.MaxUint32, aliceAuthority)
		s.Require().NoError(err)
		s.Equal(uint32(math.MaxUint32), ledger.Balance)
		s.Equal(uint64(math.MaxUint32)*models.PointValue, ledger.NativeValue)
	})
}

func (s *PointsServiceSuite) TestDebit() {
	ctx := context.Background()

	s.Run("sufficient balance is debited", func() {
		ledger, err := s.service.Debit(ctx, "alice", 30)
		s.Require().NoError(err)
		s.Equal(uint32(70), ledger.Balance)
		s.Equal(uint64(70)*models.PointValue, ledger.NativeValue)
	})

	s.Run("insufficient balance leaves the ledger unchanged", func() {
		_, err := s.service.Debit(ctx, "alice", 1000)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientPoints))

		ledger, err := s.service.Balance(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(uint32(70), ledger.Balance)
	})
}
