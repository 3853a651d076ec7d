// Package service manages single-use authentication sessions: the gate every
// value transfer must pass through exactly once.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	identitymodels "aliaspay/internal/identity/models"
	"aliaspay/internal/notify"
	"aliaspay/internal/platform/metrics"
	pointsmodels "aliaspay/internal/points/models"
	"aliaspay/internal/session/device"
	"aliaspay/internal/session/models"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, handle, sessionID string) (*models.Session, error)
	ConsumeIfActive(ctx context.Context, handle, sessionID string, now time.Time) error
	Reactivate(ctx context.Context, handle, sessionID string) error
}

// IdentityResolver answers who controls a handle. Satisfied by the identity
// service.
type IdentityResolver interface {
	Resolve(ctx context.Context, handle string) (*identitymodels.Identity, error)
}

// Ledger is the slice of the points service the session gate needs: balance
// reads at creation and consumption, the debit at consumption.
type Ledger interface {
	Balance(ctx context.Context, handle string) (*pointsmodels.Ledger, error)
	Debit(ctx context.Context, handle string, amount uint32) (*pointsmodels.Ledger, error)
}

type Service struct {
	store      Store
	identities IdentityResolver
	ledger     Ledger
	sessionTTL time.Duration
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

// WithSessionTTL turns on session expiry. Zero keeps sessions valid until
// consumed.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

func New(store Store, identities IdentityResolver, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		identities: identities,
		ledger:     ledger,
		logger:     slog.Default(),
		notifier:   notify.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a session authorizing one transfer worth requiredPoints. The
// balance is checked up front but not reserved; consumption re-checks it.
func (s *Service) Create(ctx context.Context, handle, sessionID string, requiredPoints uint32, caller domain.Address) (*models.Session, error) {
	if err := models.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	identity, err := s.identities.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	if identity.Authority != caller {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "caller is not the handle authority")
	}

	ledger, err := s.ledger.Balance(ctx, handle)
	if err != nil {
		return nil, err
	}
	if ledger.Balance < requiredPoints {
		return nil, dErrors.New(dErrors.CodeInsufficientPoints, "balance does not cover the session requirement")
	}

	session := &models.Session{
		Handle:         handle,
		ID:             sessionID,
		RequiredPoints: requiredPoints,
		Device:         device.ParseUserAgent(requestcontext.UserAgent(ctx)),
		Active:         true,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "session id is already in use for this handle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionSessionCreated,
		Handle:    handle,
		Actor:     caller,
		Device:    session.Device,
		RequestID: requestcontext.RequestID(ctx),
	})
	return session, nil
}

// ValidateAndConsume spends the session and debits the ledger. Callers run it
// inside a transfer transaction so a later failure rolls both back.
//
// Error order mirrors the validation path: a record under a different handle
// is SessionUsernameMismatch, a missing record is InvalidSessionID, a
// consumed or expired record is SessionExpired, a short balance is
// InsufficientPoints.
func (s *Service) ValidateAndConsume(ctx context.Context, handle, sessionID string, deduct uint32) (*models.Session, error) {
	if err := models.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	session, err := s.store.Find(ctx, handle, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidSessionID, "no such session for handle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if session.Handle != handle {
		// A record under another handle can only appear through key
		// substitution in the backing store.
		return nil, dErrors.New(dErrors.CodeSessionUsernameMismatch, "session belongs to a different handle")
	}

	now := requestcontext.Now(ctx)
	if !session.Active || session.Expired(s.sessionTTL, now) {
		return nil, dErrors.New(dErrors.CodeSessionExpired, "session is no longer usable")
	}

	required := session.RequiredPoints
	if deduct > required {
		required = deduct
	}
	ledger, err := s.ledger.Balance(ctx, handle)
	if err != nil {
		return nil, err
	}
	if ledger.Balance < required {
		return nil, dErrors.New(dErrors.CodeInsufficientPoints, "balance does not cover the session requirement")
	}

	if err := s.store.ConsumeIfActive(ctx, handle, sessionID, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			// Lost the race to a concurrent consumer.
			return nil, dErrors.New(dErrors.CodeSessionExpired, "session is no longer usable")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeInvalidSessionID, "no such session for handle")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume session")
		}
	}

	if _, err := s.ledger.Debit(ctx, handle, deduct); err != nil {
		// Inside a transaction the consume above rolls back with this error.
		return nil, err
	}

	session.Active = false
	session.ConsumedAt = &now

	if s.metrics != nil {
		s.metrics.SessionsConsumed.Inc()
	}
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionSessionConsumed,
		Handle:    handle,
		Amount:    uint64(deduct),
		Device:    session.Device,
		RequestID: requestcontext.RequestID(ctx),
	})
	return session, nil
}

// Reactivate re-arms a consumed session whose transfer failed. For stores
// that join the transfer transaction the rollback already restored the
// session and this is idempotent; for Redis it is the only undo path.
func (s *Service) Reactivate(ctx context.Context, handle, sessionID string) error {
	if err := s.store.Reactivate(ctx, handle, sessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvalidSessionID, "no such session for handle")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reactivate session")
	}
	return nil
}
