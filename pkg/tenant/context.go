package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithTenantID adds the resolved tenant id to the context.
func WithTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// TenantIDFromContext retrieves the tenant id from the context.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return id, ok
}

// MustTenantIDFromContext retrieves the tenant id from the context.
// Panics if absent; use only in handlers mounted behind the middleware.
func MustTenantIDFromContext(ctx context.Context) uuid.UUID {
	id, ok := TenantIDFromContext(ctx)
	if !ok {
		panic("tenant: no tenant id in context")
	}
	return id
}

// LoggerExtractor returns a logger context extractor that adds the tenant id
// to every log record produced within a resolved request.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := TenantIDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
