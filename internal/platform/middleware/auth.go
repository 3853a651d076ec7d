package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"aliaspay/pkg/domain"
	"aliaspay/pkg/requestcontext"
)

// Claims is what the auth middleware needs back from token validation: the
// address the caller proved control of.
type Claims struct {
	Address domain.Address
}

// TokenValidator validates a bearer token and extracts the caller's claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's address in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), claims.Address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller retrieves the authenticated caller address from the context.
func GetCaller(r *http.Request) domain.Address {
	return requestcontext.Caller(r.Context())
}

func writeAuthError(w http.ResponseWriter, status int, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "unauthorized",
		"error_description": desc,
	})
}
