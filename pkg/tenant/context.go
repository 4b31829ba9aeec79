package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context is the resolved tenant scope of one request. It is built once
// when the request arrives, never persisted, and immutable afterwards:
// the SuperAdmin flag is set by token validation via WithSuperAdmin,
// which returns a copy.
type Context struct {
	TenantID   uuid.UUID
	Mode       RoutingMode
	SuperAdmin bool
}

// WithSuperAdmin returns a copy marked as a superadmin operating
// cross-tenant capable.
func (c Context) WithSuperAdmin() Context {
	c.SuperAdmin = true
	return c
}

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext attaches the resolved tenant context to the request context.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext retrieves the tenant context. Returns false when the
// request was never resolved.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}

// MustFromContext retrieves the tenant context or panics. Use only in
// handlers mounted behind the resolution middleware.
func MustFromContext(ctx context.Context) Context {
	tc, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant context in request context")
	}
	return tc
}

// LoggerExtractor feeds the tenant id into log records when present.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if tc, ok := FromContext(ctx); ok {
			return slog.String("tenant_id", tc.TenantID.String()), true
		}
		return slog.Attr{}, false
	}
}
