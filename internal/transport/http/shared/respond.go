// Package shared holds response helpers used by every HTTP handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "aliaspay/pkg/domain-errors"
)

type errorResponse struct {
	Error   dErrors.Code `json:"error"`
	Message string       `json:"message,omitempty"`
}

// WriteError maps a coded error onto its HTTP status and writes a JSON
// envelope. Internal causes are never echoed to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := "internal error"
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		message = dErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: code, Message: message})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
