// Package service orchestrates the identity registry: handle registration,
// profile updates, authority changes and reverse lookups.
package service

import (
	"context"
	"errors"
	"log/slog"

	"aliaspay/internal/identity/models"
	"aliaspay/internal/notify"
	"aliaspay/internal/platform/metrics"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/platform/tx"
	"aliaspay/pkg/requestcontext"
)

// Store is the persistence surface the service needs. Implementations live in
// the store package.
type Store interface {
	CreateIfAvailable(ctx context.Context, identity *models.Identity) error
	FindByHandle(ctx context.Context, handle string) (*models.Identity, error)
	Update(ctx context.Context, identity *models.Identity) error
	UpsertReverse(ctx context.Context, lookup models.ReverseLookup) error
	FindReverse(ctx context.Context, addr domain.Address) (*models.ReverseLookup, error)
}

// LedgerInitializer seeds the points ledger during registration. It runs
// inside the registration transaction so identity and ledger appear together
// or not at all.
type LedgerInitializer interface {
	Init(ctx context.Context, handle string) error
}

// Service implements the identity registry operations.
type Service struct {
	store    Store
	ledgers  LedgerInitializer
	tx       tx.Runner
	logger   *slog.Logger
	notifier notify.Publisher
	metrics  *metrics.Metrics
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

func New(store Store, ledgers LedgerInitializer, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:    store,
		ledgers:  ledgers,
		tx:       runner,
		logger:   slog.Default(),
		notifier: notify.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a handle for the caller. The caller's address becomes both
// authority and main address, the reverse lookup is written and the points
// ledger is seeded, all in one transaction.
func (s *Service) Create(ctx context.Context, handle string, authority domain.Address, details models.Details) (*models.Identity, error) {
	var created *models.Identity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		identity, err := models.NewIdentity(handle, authority, details, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}

		if err := s.store.CreateIfAvailable(txCtx, identity); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyExists, "handle is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
		}
		if err := s.store.UpsertReverse(txCtx, models.ReverseLookup{
			Address:   identity.MainAddress,
			Handle:    identity.Handle,
			UpdatedAt: identity.CreatedAt,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write reverse lookup")
		}
		if err := s.ledgers.Init(txCtx, identity.Handle); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed points ledger")
		}

		created = identity
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IdentitiesCreated.Inc()
	}
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionIdentityCreated,
		Handle:    created.Handle,
		Actor:     authority,
		RequestID: requestcontext.RequestID(ctx),
	})
	return created, nil
}

// SetDetails replaces the profile fields. Only the authority may update them;
// oversized fields are clipped.
func (s *Service) SetDetails(ctx context.Context, handle string, caller domain.Address, details models.Details) (*models.Identity, error) {
	identity, err := s.authorized(ctx, handle, caller)
	if err != nil {
		return nil, err
	}

	identity.Details = details.Clip()
	identity.UpdatedAt = requestcontext.Now(ctx)
	if err := s.update(ctx, identity); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionIdentityUpdated,
		Handle:    handle,
		Actor:     caller,
		RequestID: requestcontext.RequestID(ctx),
	})
	return identity, nil
}

// SetMainAddress redirects the handle to a new main address and writes the
// reverse lookup for it. The reverse record of the previous address is left
// in place; Resolve remains the source of truth.
func (s *Service) SetMainAddress(ctx context.Context, handle string, caller, newAddr domain.Address) (*models.Identity, error) {
	if newAddr.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "main address is required")
	}
	identity, err := s.authorized(ctx, handle, caller)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	identity.MainAddress = newAddr
	identity.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Update(txCtx, identity); err != nil {
			return wrapStoreErr(err, "failed to update identity")
		}
		if err := s.store.UpsertReverse(txCtx, models.ReverseLookup{
			Address:   newAddr,
			Handle:    handle,
			UpdatedAt: now,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write reverse lookup")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionMainAddressChanged,
		Handle:    handle,
		Subject:   newAddr.String(),
		Actor:     caller,
		RequestID: requestcontext.RequestID(ctx),
	})
	return identity, nil
}

// TransferAuthority hands control of the handle to a new authority. The
// change is immediate; there is no two-step acceptance.
func (s *Service) TransferAuthority(ctx context.Context, handle string, caller, newAuthority domain.Address) (*models.Identity, error) {
	if newAuthority.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "new authority address is required")
	}
	identity, err := s.authorized(ctx, handle, caller)
	if err != nil {
		return nil, err
	}

	identity.Authority = newAuthority
	identity.UpdatedAt = requestcontext.Now(ctx)
	if err := s.update(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "authority transferred",
		"handle", handle,
		"new_authority", newAuthority.String(),
	)
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionAuthorityTransferred,
		Handle:    handle,
		Subject:   newAuthority.String(),
		Actor:     caller,
		RequestID: requestcontext.RequestID(ctx),
	})
	return identity, nil
}

// Resolve returns the identity registered under handle.
func (s *Service) Resolve(ctx context.Context, handle string) (*models.Identity, error) {
	if err := models.ValidateHandle(handle); err != nil {
		return nil, err
	}
	identity, err := s.store.FindByHandle(ctx, handle)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to resolve handle")
	}
	return identity, nil
}

// Whois answers the reverse question: which handle does this address belong
// to. Stale records can outlive a main address change, so the answer is
// re-verified against the current identity.
func (s *Service) Whois(ctx context.Context, addr domain.Address) (string, error) {
	if addr.IsZero() {
		return "", dErrors.New(dErrors.CodeBadRequest, "address is required")
	}
	lookup, err := s.store.FindReverse(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "address has no current handle")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to reverse-resolve address")
	}

	identity, err := s.store.FindByHandle(ctx, lookup.Handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "address has no current handle")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to reverse-resolve address")
	}
	if identity.MainAddress != addr {
		return "", dErrors.New(dErrors.CodeNotFound, "address has no current handle")
	}
	return lookup.Handle, nil
}

func (s *Service) authorized(ctx context.Context, handle string, caller domain.Address) (*models.Identity, error) {
	if err := models.ValidateHandle(handle); err != nil {
		return nil, err
	}
	identity, err := s.store.FindByHandle(ctx, handle)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load identity")
	}
	if identity.Authority != caller {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "caller is not the handle authority")
	}
	return identity, nil
}

func (s *Service) update(ctx context.Context, identity *models.Identity) error {
	if err := s.store.Update(ctx, identity); err != nil {
		return wrapStoreErr(err, "failed to update identity")
	}
	return nil
}

func wrapStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "handle is not registered")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
