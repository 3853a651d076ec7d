// Package service manages typed address mappings attached to handles.
package service

import (
	"context"
	"errors"
	"log/slog"

	identitymodels "aliaspay/internal/identity/models"
	"aliaspay/internal/mapping/models"
	"aliaspay/internal/notify"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/sentinel"
	"aliaspay/pkg/requestcontext"
)

type Store interface {
	Upsert(ctx context.Context, mapping models.Mapping) error
	Find(ctx context.Context, handle, mtype string) (*models.Mapping, error)
	Delete(ctx context.Context, handle, mtype string) error
}

// IdentityResolver answers who controls a handle. Satisfied by the identity
// service.
type IdentityResolver interface {
	Resolve(ctx context.Context, handle string) (*identitymodels.Identity, error)
}

type Service struct {
	store      Store
	identities IdentityResolver
	logger     *slog.Logger
	notifier   notify.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(p notify.Publisher) Option {
	return func(s *Service) { s.notifier = p }
}

func New(store Store, identities IdentityResolver, opts ...Option) *Service {
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

// Upsert creates or replaces the (handle, type) slot. Only the handle
// authority may write mappings.
func (s *Service) Upsert(ctx context.Context, handle, mtype string, target domain.Address, hint models.TypeHint, caller domain.Address) (*models.Mapping, error) {
	if err := models.ValidateType(mtype); err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "mapping target address is required")
	}
	if err := s.requireAuthority(ctx, handle, caller); err != nil {
		return nil, err
	}

	mapping := models.Mapping{
		Handle:    handle,
		Type:      mtype,
		Target:    target,
		Hint:      hint,
		UpdatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Upsert(ctx, mapping); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store mapping")
	}

	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionMappingSet,
		Handle:    handle,
		Subject:   mtype,
		Actor:     caller,
		RequestID: requestcontext.RequestID(ctx),
	})
	return &mapping, nil
}

// Resolve returns the mapping in the (handle, type) slot. The stored record
// is re-verified against the requested coordinates; a divergence means the
// backing store handed back a record from a different slot.
func (s *Service) Resolve(ctx context.Context, handle, mtype string) (*models.Mapping, error) {
	if err := models.ValidateType(mtype); err != nil {
		return nil, err
	}
	mapping, err := s.store.Find(ctx, handle, mtype)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no mapping for handle and type")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve mapping")
	}
	if mapping.Handle != handle || mapping.Type != mtype {
		return nil, dErrors.New(dErrors.CodeMappingMismatch, "mapping record does not match the requested slot")
	}
	return mapping, nil
}

// Clear removes the (handle, type) slot.
func (s *Service) Clear(ctx context.Context, handle, mtype string, caller domain.Address) error {
	if err := models.ValidateType(mtype); err != nil {
		return err
	}
	if err := s.requireAuthority(ctx, handle, caller); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, handle, mtype); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no mapping for handle and type")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear mapping")
	}

	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionMappingCleared,
		Handle:    handle,
		Subject:   mtype,
		Actor:     caller,
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

func (s *Service) requireAuthority(ctx context.Context, handle string, caller domain.Address) error {
	identity, err := s.identities.Resolve(ctx, handle)
	if err != nil {
		return err
	}
	if identity.Authority != caller {
		return dErrors.New(dErrors.CodeNotAuthorized, "caller is not the handle authority")
	}
	return nil
}
