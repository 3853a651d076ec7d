// Package handler exposes authentication sessions over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aliaspay/internal/platform/middleware"
	"aliaspay/internal/session/models"
	"aliaspay/internal/transport/http/shared"
	"aliaspay/pkg/domain"
)

// Service defines the interface for session operations.
type Service interface {
	Create(ctx context.Context, handle, sessionID string, requiredPoints uint32, caller domain.Address) (*models.Session, error)
}

// Handler wires session endpoints to the session service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New constructs a session handler with its dependencies.
func New(service Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAuth(h.validator, h.logger))
		ar.Post("/v1/identities/{handle}/sessions", h.handleCreate)
	})
}

// CreateSessionRequest is the body for POST /v1/identities/{handle}/sessions.
type CreateSessionRequest struct {
	SessionID      string `json:"session_id"`
	RequiredPoints uint32 `json:"required_points"`
}

func (r *CreateSessionRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	return models.ValidateSessionID(r.SessionID)
}

// SessionResponse is the HTTP shape of an authentication session.
type SessionResponse struct {
	Handle         string    `json:"handle"`
	SessionID      string    `json:"session_id"`
	RequiredPoints uint32    `json:"required_points"`
	Device         string    `json:"device"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromSession converts a session record to its HTTP response.
func FromSession(s *models.Session) *SessionResponse {
	return &SessionResponse{
		Handle:         s.Handle,
		SessionID:      s.ID,
		RequiredPoints: s.RequiredPoints,
		Device:         s.Device,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")

	req, ok := shared.DecodeAndPrepare[CreateSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.Create(ctx, handle, req.SessionID, req.RequiredPoints, caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, FromSession(session))
}
