// Package handler exposes the transfer gateway over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aliaspay/internal/platform/middleware"
	"aliaspay/internal/transfer/models"
	"aliaspay/internal/transport/http/shared"
	dErrors "aliaspay/pkg/domain-errors"
)

// Service defines the interface for transfer operations.
type Service interface {
	ToMain(ctx context.Context, req models.Request) (*models.Transfer, error)
	ToMapping(ctx context.Context, req models.MappingRequest) (*models.Transfer, error)
	History(ctx context.Context, handle string, page, pageSize int) ([]models.Transfer, error)
}

// Handler wires transfer endpoints to the transfer service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New constructs a transfer handler with its dependencies.
func New(service Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts transfer endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/identities/{handle}/transfers", h.handleHistory)

	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAuth(h.validator, h.logger))
		ar.Post("/v1/transfers/main", h.handleToMain)
		ar.Post("/v1/transfers/mapping", h.handleToMapping)
	})
}

func (h *Handler) handleToMain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := shared.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	transfer, err := h.service.ToMain(ctx, req.toModel(middleware.GetCaller(r)))
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "transfer to main failed",
				"request_id", requestID,
				"sender", req.SenderHandle,
				"recipient", req.RecipientHandle,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromTransfer(transfer))
}

func (h *Handler) handleToMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := shared.DecodeAndPrepare[MappingTransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	transfer, err := h.service.ToMapping(ctx, req.toModel(middleware.GetCaller(r)))
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "transfer to mapping failed",
				"request_id", requestID,
				"sender", req.SenderHandle,
				"recipient", req.RecipientHandle,
				"mapping_type", req.MappingType,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromTransfer(transfer))
}

// handleHistory serves GET /v1/identities/{handle}/transfers?page=N&page_size=M.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", models.MaxPageSize)

	transfers, err := h.service.History(r.Context(), handle, page, pageSize)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if pageSize <= 0 || pageSize > models.MaxPageSize {
		pageSize = models.MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	shared.WriteJSON(w, http.StatusOK, FromTransfers(transfers, page, pageSize))
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
