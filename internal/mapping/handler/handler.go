// Package handler exposes typed mapping slots over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aliaspay/internal/mapping/models"
	"aliaspay/internal/platform/middleware"
	"aliaspay/internal/transport/http/shared"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// Service defines the interface for mapping operations.
type Service interface {
	Upsert(ctx context.Context, handle, mtype string, target domain.Address, hint models.TypeHint, caller domain.Address) (*models.Mapping, error)
	Resolve(ctx context.Context, handle, mtype string) (*models.Mapping, error)
	Clear(ctx context.Context, handle, mtype string, caller domain.Address) error
}

// Handler wires mapping endpoints to the mapping service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New constructs a mapping handler with its dependencies.
func New(service Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts mapping endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/identities/{handle}/mappings/{type}", h.handleResolve)

	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAuth(h.validator, h.logger))
		ar.Put("/v1/identities/{handle}/mappings/{type}", h.handleUpsert)
		ar.Delete("/v1/identities/{handle}/mappings/{type}", h.handleClear)
	})
}

// UpsertMappingRequest is the body for PUT /v1/identities/{handle}/mappings/{type}.
type UpsertMappingRequest struct {
	Target string `json:"target"`
	Hint   uint8  `json:"hint"`

	parsed domain.Address
}

func (r *UpsertMappingRequest) Validate() error {
	addr, err := domain.ParseAddress(strings.TrimSpace(r.Target))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid target address")
	}
	if r.Hint > uint8(models.HintCustom) {
		return dErrors.New(dErrors.CodeBadRequest, "unknown type hint")
	}
	r.parsed = addr
	return nil
}

// MappingResponse is the HTTP shape of a mapping slot.
type MappingResponse struct {
	Handle    string    `json:"handle"`
	Type      string    `json:"type"`
	Target    string    `json:"target"`
	Hint      uint8     `json:"hint"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromMapping converts a mapping record to its HTTP response.
func FromMapping(m *models.Mapping) *MappingResponse {
	return &MappingResponse{
		Handle:    m.Handle,
		Type:      m.Type,
		Target:    m.Target.String(),
		Hint:      uint8(m.Hint),
		UpdatedAt: m.UpdatedAt,
	}
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")
	mtype := chi.URLParam(r, "type")

	req, ok := shared.DecodeAndPrepare[UpsertMappingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	mapping, err := h.service.Upsert(ctx, handle, mtype, req.parsed, models.TypeHint(req.Hint), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromMapping(mapping))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.service.Resolve(r.Context(), chi.URLParam(r, "handle"), chi.URLParam(r, "type"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromMapping(mapping))
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")
	mtype := chi.URLParam(r, "type")

	if err := h.service.Clear(ctx, handle, mtype, caller); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
