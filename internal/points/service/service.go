// Package service exposes the points ledger operations. Credits require the
// handle authority; debits are internal and only reachable through the
// transfer authorization path.
package service

import (
	"context"
	"errors"
	"log/slog"

	identitymodels "aliaspay/internal/identity/models"
	"aliaspay/internal/notify"
	"aliaspay/internal/platform/metrics"
	"aliaspay/internal/points/models"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/requestcontext"
)

type Store interface {
	Init(ctx context.Context, handle string) error
	Get(ctx context.Context, handle string) (*models.Ledger, error)
	Credit(ctx context.Context, handle string, amount uint32) (*models.Ledger, error)
	DebitIfSufficient(ctx context.Context, handle string, amount uint32) (*models.Ledger, error)
}

// AuthorityResolver answers who controls a handle. Satisfied by the identity
// service.
type AuthorityResolver interface {
	Resolve(ctx context.Context, handle string) (*identitymodels.Identity, error)
}

type Service struct {
	store      Store
	identities AuthorityResolver
	logger     *slog.Logger
	notifier   notify.Publisher
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(p notify.Publisher) Option {
	return func(s *Service) { s.notifier = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, identities AuthorityResolver, opts ...Option) *Service {
	s := &Service{
		store:      store,
		identities: identities,
		logger:     slog.Default(),
		notifier:   notify.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init seeds the ledger for a fresh handle. Called from identity registration
// inside its transaction.
func (s *Service) Init(ctx context.Context, handle string) error {
	return s.store.Init(ctx, handle)
}

// Credit adds points to the handle's ledger. Only the handle authority may
// credit; the add saturates at the uint32 ceiling without error.
func (s *Service) Credit(ctx context.Context, handle string, amount uint32, caller domain.Address) (*models.Ledger, error) {
	identity, err := s.identities.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	if identity.Authority != caller {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "caller is not the handle authority")
	}

	ledger, err := s.store.Credit(ctx, handle, amount)
	if err != nil {
		return nil, wrapLedgerErr(err, "failed to credit points")
	}

	if s.metrics != nil {
		s.metrics.PointsCredited.Add(float64(amount))
	}
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionPointsCredited,
		Handle:    handle,
		Actor:     caller,
		Amount:    uint64(amount),
		RequestID: requestcontext.RequestID(ctx),
	})
	return ledger, nil
}

// Balance returns the current balance and its native value. Public, no auth.
func (s *Service) Balance(ctx context.Context, handle string) (*models.Ledger, error) {
	ledger, err := s.store.Get(ctx, handle)
	if err != nil {
		return nil, wrapLedgerErr(err, "failed to read ledger")
	}
	return ledger, nil
}

// Debit removes points when the balance covers the amount. Only the session
// consumption path calls this, inside the transfer transaction.
func (s *Service) Debit(ctx context.Context, handle string, amount uint32) (*models.Ledger, error) {
	ledger, err := s.store.DebitIfSufficient(ctx, handle, amount)
	if err != nil {
		if errors.Is(err, sentinel.ErrInsufficient) {
			return nil, dErrors.New(dErrors.CodeInsufficientPoints, "balance does not cover the debit")
		}
		return nil, wrapLedgerErr(err, "failed to debit points")
	}

	if s.metrics != nil {
		s.metrics.PointsDebited.Add(float64(amount))
	}
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionPointsDebited,
		Handle:    handle,
		Amount:    uint64(amount),
		RequestID: requestcontext.RequestID(ctx),
	})
	return ledger, nil
}

func wrapLedgerErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "no ledger for handle")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
