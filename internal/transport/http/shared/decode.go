package shared

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "aliaspay/pkg/domain-errors"
)

// Validatable is implemented by request bodies that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation.
// On failure it writes the error response and returns ok=false; the handler
// just returns.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err.Error(),
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
