// Package handler exposes the identity registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"aliaspay/internal/identity/models"
	"aliaspay/internal/platform/middleware"
	"aliaspay/internal/transport/http/shared"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// Service defines the interface for identity operations.
type Service interface {
	Create(ctx context.Context, handle string, authority domain.Address, details models.Details) (*models.Identity, error)
	SetDetails(ctx context.Context, handle string, caller domain.Address, details models.Details) (*models.Identity, error)
	SetMainAddress(ctx context.Context, handle string, caller, newAddr domain.Address) (*models.Identity, error)
	TransferAuthority(ctx context.Context, handle string, caller, newAuthority domain.Address) (*models.Identity, error)
	Resolve(ctx context.Context, handle string) (*models.Identity, error)
	Whois(ctx context.Context, addr domain.Address) (string, error)
}

// Handler wires identity endpoints to the identity service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New constructs an identity handler with its dependencies.
func New(service Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts identity endpoints on the router. The router is expected to
// carry the shared middleware stack already.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/identities/{handle}", h.handleResolve)
	r.Get("/v1/addresses/{address}", h.handleWhois)

	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAuth(h.validator, h.logger))
		ar.Post("/v1/identities", h.handleCreate)
		ar.Patch("/v1/identities/{handle}", h.handleSetDetails)
		ar.Put("/v1/identities/{handle}/main-address", h.handleSetMainAddress)
		ar.Put("/v1/identities/{handle}/authority", h.handleTransferAuthority)
	})
}

// handleCreate registers a new handle. The authenticated caller becomes the
// authority and initial main address.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)

	req, ok := shared.DecodeAndPrepare[CreateIdentityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.Create(ctx, req.Handle, caller, req.Details.toModel())
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to create identity",
				"request_id", requestID,
				"handle", req.Handle,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, FromIdentity(identity))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Resolve(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromIdentity(identity))
}

func (h *Handler) handleWhois(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(strings.TrimSpace(chi.URLParam(r, "address")))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid address"))
		return
	}

	handle, err := h.service.Whois(r.Context(), addr)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, WhoisResponse{Address: addr.String(), Handle: handle})
}

func (h *Handler) handleSetDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")

	req, ok := shared.DecodeAndPrepare[DetailsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.SetDetails(ctx, handle, caller, req.toModel())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromIdentity(identity))
}

func (h *Handler) handleSetMainAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")

	req, ok := shared.DecodeAndPrepare[SetMainAddressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.SetMainAddress(ctx, handle, caller, req.parsed)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromIdentity(identity))
}

func (h *Handler) handleTransferAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")

	req, ok := shared.DecodeAndPrepare[TransferAuthorityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.TransferAuthority(ctx, handle, caller, req.parsed)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromIdentity(identity))
}
