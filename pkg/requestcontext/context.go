// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	caller := requestcontext.Caller(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithCaller(ctx, addr)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"aliaspay/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	callerKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyCaller      = callerKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Caller retrieves the authenticated caller address from the context.
// Returns the zero Address if not set.
func Caller(ctx context.Context) domain.Address {
	if addr, ok := ctx.Value(ContextKeyCaller).(domain.Address); ok {
		return addr
	}
	return ""
}

// WithCaller injects the authenticated caller address into the context.
func WithCaller(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, addr)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// UserAgent retrieves the raw User-Agent header value from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithUserAgent injects the User-Agent header value into the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ContextKeyUserAgent, ua)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// Now retrieves the request-scoped time from the context. All operations
// within one request observe the same "now", which keeps audit timestamps and
// session TTL checks consistent. Falls back to time.Now when unset.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
