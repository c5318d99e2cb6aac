package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/entitlement"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/tenant"
)

// RequireActiveSubscription gates a route group on the tenant holding any
// subscription granting access. A missing subscription is 403, a store
// failure is 500.
func (m *Module) RequireActiveSubscription(next http.Handler) http.Handler {
	return m.requireMiddleware(next, m.gate.RequireActive)
}

// RequirePremium gates a route group on an active paid-tier subscription.
func (m *Module) RequirePremium(next http.Handler) http.Handler {
	return m.requireMiddleware(next, m.gate.RequirePremium)
}

func (m *Module) requireMiddleware(next http.Handler, check func(ctx context.Context, tenantID uuid.UUID) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenant.TenantIDFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "tenant not resolved")
			return
		}

		if err := check(r.Context(), tenantID); err != nil {
			switch {
			case errors.Is(err, entitlement.ErrNoActiveSubscription):
				respondError(w, http.StatusForbidden, "an active subscription is required")
			case errors.Is(err, entitlement.ErrPremiumRequired):
				respondError(w, http.StatusForbidden, "upgrade required: this feature needs a paid plan")
			case errors.Is(err, entitlement.ErrPlanRequired):
				respondError(w, http.StatusForbidden, "upgrade required: this feature needs a different plan")
			default:
				respondError(w, http.StatusInternalServerError, "failed to check entitlement")
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CheckTrialLimit returns middleware gating create operations on a
// resource's trial ceiling. Mount it on POST routes of gated resources;
// non-trialing tenants pass through without a count query.
func (m *Module) CheckTrialLimit(res entitlement.Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := tenant.TenantIDFromContext(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "tenant not resolved")
				return
			}

			decision, err := m.gate.CheckLimit(r.Context(), tenantID, res)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "failed to check trial limit")
				return
			}
			if !decision.Allowed {
				respondJSON(w, http.StatusForbidden, map[string]any{
					"error":    decision.Message(),
					"resource": decision.Resource,
					"used":     decision.Used,
					"limit":    decision.Limit,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
