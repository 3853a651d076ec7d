package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aliaspay/internal/identity/models"
	"aliaspay/internal/identity/store"
	"aliaspay/internal/notify"
	pointsmodels "aliaspay/internal/points/models"
	pointsstore "aliaspay/internal/points/store"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
	"aliaspay/pkg/requestcontext"
)

type IdentityServiceSuite struct {
	suite.Suite
	store   *store.MemoryStore
	ledgers *pointsstore.MemoryStore
	events  *notify.InMemoryStore
	service *Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

const (
	aliceAddr    = domain.Address("11000000000000000000000000000000000000000000000000000000000000aa")
	bobAddr      = domain.Address("22000000000000000000000000000000000000000000000000000000000000bb")
	strangerAddr = domain.Address("33000000000000000000000000000000000000000000000000000000000000cc")
)

// syncPublisher appends straight to the store so tests can assert without
// waiting on a worker.
type syncPublisher struct {
	store *notify.InMemoryStore
}

func (p syncPublisher) Emit(ctx context.Context, event notify.Event) {
	_ = p.store.Append(ctx, event)
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.ledgers = pointsstore.NewMemory()
	s.events = notify.NewInMemoryStore()

	runner := tx.NewMemoryRunner(s.store, s.ledgers)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store, s.ledgers, runner,
		WithLogger(logger),
		WithNotifier(syncPublisher{store: s.events}),
	)
}

func (s *IdentityServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("registers handle with seeded ledger", func() {
		identity, err := s.service.Create(ctx, "alice", aliceAddr, models.Details{Bio: "hi"})
		s.Require().NoError(err)
		s.Equal("alice", identity.Handle)
		s.Equal(aliceAddr, identity.Authority)
		s.Equal(aliceAddr, identity.MainAddress)

		resolved, err := s.service.Resolve(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(aliceAddr, resolved.MainAddress)
		s.Equal("hi", resolved.Details.Bio)

		ledger, err := s.ledgers.Get(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(pointsmodels.InitialPoints, ledger.Balance)

		handle, err := s.service.Whois(ctx, aliceAddr)
		s.Require().NoError(err)
		s.Equal("alice", handle)

		events, err := s.events.ListByHandle(ctx, "alice")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(notify.ActionIdentityCreated, events[0].Action)
	})

	s.Run("duplicate handle leaves no partial state", func() {
		_, err := s.service.Create(ctx, "alice", bobAddr, models.Details{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))

		// First registration is untouched.
		identity, err := s.service.Resolve(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(aliceAddr, identity.Authority)
	})

	s.Run("invalid handles are rejected", func() {
		for _, handle := range []string{"", "Alice", "bob@x"} {
			_, err := s.service.Create(ctx, handle, aliceAddr, models.Details{})
			s.Require().Error(err, handle)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidHandle), handle)
		}
	})

	s.Run("zero authority is rejected", func() {
		_, err := s.service.Create(ctx, "zed", "", models.Details{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *IdentityServiceSuite) TestCreate_LedgerFailureRollsBackIdentity() {
	ctx := context.Background()

	failing := &failingLedgers{}
	runner := tx.NewMemoryRunner(s.store)
	svc := New(s.store, failing, runner)

	_, err := svc.Create(ctx, "alice", aliceAddr, models.Details{})
	s.Require().Error(err)

	_, err = s.store.FindByHandle(ctx, "alice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindReverse(ctx, aliceAddr)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

type failingLedgers struct{}

func (failingLedgers) Init(context.Context, string) error {
	return errors.New("ledger backend down")
}

func (s *IdentityServiceSuite) TestSetDetails() {
	ctx := context.Background()
	_, err := s.service.Create(ctx, "alice", aliceAddr, models.Details{})
	s.Require().NoError(err)

	s.Run("authority updates and clips", func() {
		long := make([]byte, models.MaxBioLen+100)
		for i := range long {
			long[i] = 'b'
		}
		identity, err := s.service.SetDetails(ctx, "alice", aliceAddr, models.Details{Bio: string(long), Twitter: "al"})
		s.Require().NoError(err)
		s.Len(identity.Details.Bio, models.MaxBioLen)
		s.Equal("al", identity.Details.Twitter)
	})

	s.Run("stranger is rejected", func() {
		_, err := s.service.SetDetails(ctx, "alice", strangerAddr, models.Details{Bio: "x"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("unknown handle", func() {
		_, err := s.service.SetDetails(ctx, "nobody", aliceAddr, models.Details{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IdentityServiceSuite) TestSetMainAddress() {
	ctx := context.Background()
	_, err := s.service.Create(ctx, "alice", aliceAddr, models.Details{})
	s.Require().NoError(err)

	s.Run("authority redirects the handle", func() {
		identity, err := s.service.SetMainAddress(ctx, "alice", aliceAddr, bobAddr)
		s.Require().NoError(err)
		s.Equal(bobAddr, identity.MainAddress)
		s.Equal(aliceAddr, identity.Authority)

		handle, err := s.service.Whois(ctx, bobAddr)
		s.Require().NoError(err)
		s.Equal("alice", handle)
	})

	s.Run("stale reverse record no longer resolves", func() {
		// The old record is kept in the store but Whois re-verifies against
		// the current identity.
		lookup, err := s.store.FindReverse(ctx, aliceAddr)
		s.Require().NoError(err)
		s.Equal("alice", lookup.Handle)

		_, err = s.service.Whois(ctx, aliceAddr)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("stranger is rejected", func() {
		_, err := s.service.SetMainAddress(ctx, "alice", strangerAddr, strangerAddr)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}

func (s *IdentityServiceSuite) TestTransferAuthority() {
	ctx := requestcontext.WithTime(context.Background(), time.Now())
	_, err := s.service.Create(ctx, "alice", aliceAddr, models.Details{})
	s.Require().NoError(err)

	s.Run("authority hands over control", func() {
		identity, err := s.service.TransferAuthority(ctx, "alice", aliceAddr, bobAddr)
		s.Require().NoError(err)
		s.Equal(bobAddr, identity.Authority)
		s.Equal(aliceAddr, identity.MainAddress)
	})

	s.Run("old authority is locked out immediately", func() {
		_, err := s.service.TransferAuthority(ctx, "alice", aliceAddr, strangerAddr)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("new authority is in control", func() {
		_, err := s.service.SetDetails(ctx, "alice", bobAddr, models.Details{Bio: "bob now"})
		s.Require().NoError(err)
	})
}

func (s *IdentityServiceSuite) TestWhois_UnknownAddress() {
	_, err := s.service.Whois(context.Background(), strangerAddr)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
