// Package handler exposes the points ledger over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aliaspay/internal/platform/middleware"
	"aliaspay/internal/points/models"
	"aliaspay/internal/transport/http/shared"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// Service defines the interface for points operations.
type Service interface {
	Balance(ctx context.Context, handle string) (*models.Ledger, error)
	Credit(ctx context.Context, handle string, amount uint32, caller domain.Address) (*models.Ledger, error)
}

// Handler wires points endpoints to the points service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New constructs a points handler with its dependencies.
func New(service Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts points endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/identities/{handle}/points", h.handleBalance)

	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAuth(h.validator, h.logger))
		ar.Post("/v1/identities/{handle}/points/credit", h.handleCredit)
	})
}

// CreditRequest is the body for POST /v1/identities/{handle}/points/credit.
type CreditRequest struct {
	Amount uint32 `json:"amount"`
}

func (r *CreditRequest) Validate() error {
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "credit amount must be positive")
	}
	return nil
}

// LedgerResponse is the HTTP shape of a points ledger.
type LedgerResponse struct {
	Handle      string    `json:"handle"`
	Balance     uint32    `json:"balance"`
	NativeValue uint64    `json:"native_value"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromLedger converts a ledger record to its HTTP response.
func FromLedger(l *models.Ledger) *LedgerResponse {
	return &LedgerResponse{
		Handle:      l.Handle,
		Balance:     l.Balance,
		NativeValue: l.NativeValue,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.service.Balance(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromLedger(ledger))
}

func (h *Handler) handleCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(r)
	handle := chi.URLParam(r, "handle")

	req, ok := shared.DecodeAndPrepare[CreditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ledger, err := h.service.Credit(ctx, handle, req.Amount, caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromLedger(ledger))
}
