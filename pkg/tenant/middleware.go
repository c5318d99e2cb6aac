package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// AccountIDFromRequest extracts the authenticated account id from the
// request. It is supplied by the auth collaborator (session, JWT claim).
type AccountIDFromRequest func(r *http.Request) (uuid.UUID, error)

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that skip tenant resolution
// (webhook ingress, health checks).
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrAccountNotFound):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrInactiveAccount):
		http.Error(w, "Account is inactive", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Middleware resolves the canonical tenant id for the authenticated caller
// and stores it in the request context. Handlers behind it read the id via
// TenantIDFromContext and must scope every query by it.
func Middleware(resolver *Resolver, accountID AccountIDFromRequest, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant: resolver is required")
	}
	if accountID == nil {
		panic("tenant: AccountIDFromRequest is required")
	}

	cfg := &middlewareConfig{
		errorHandler: defaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := accountID(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			tenantID, err := resolver.ResolveTenantID(r.Context(), id)
			if err != nil {
				cfg.logger.WarnContext(r.Context(), "tenant resolution failed",
					slog.String("account_id", id.String()),
					slog.Any("error", err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			ctx := WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant ensures a tenant id is present in the context. Useful for
// protecting routes mounted outside the resolving middleware.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := TenantIDFromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
