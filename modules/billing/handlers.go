package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/entitlement"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/tenant"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/ttlstore"
)

type subscriptionResponse struct {
	ID          uuid.UUID  `json:"id"`
	PlanID      string     `json:"plan_id"`
	PlanType    string     `json:"plan_type"`
	Status      string     `json:"status"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	AutoRenew   bool       `json:"auto_renew"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
	Cycle       string     `json:"billing_cycle,omitempty"`
}

func toSubscriptionResponse(sub *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:          sub.ID,
		PlanID:      sub.PlanID,
		PlanType:    string(sub.PlanType),
		Status:      string(sub.Status),
		StartDate:   sub.StartDate,
		EndDate:     sub.EndDate,
		TrialEndsAt: sub.TrialEndsAt,
		AutoRenew:   sub.AutoRenew,
		Amount:      sub.Amount,
		Currency:    sub.Currency,
		Cycle:       string(sub.Cycle),
	}
}

func (m *Module) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	sub, err := m.svc.GetActiveSubscription(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "no current subscription")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (m *Module) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	subs, err := m.svc.ListSubscriptions(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load subscription history")
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub))
	}
	respondJSON(w, http.StatusOK, out)
}

func (m *Module) handleTrialStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	status, err := m.svc.GetTrialStatus(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load trial status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"trialing":       status.Trialing,
		"plan_id":        status.PlanID,
		"trial_ends_at":  status.TrialEndsAt,
		"days_remaining": status.DaysRemaining,
	})
}

func (m *Module) handleUsage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	res := entitlement.Resource(chi.URLParam(r, "resource"))
	used, limit, err := m.gate.Usage(r.Context(), tenantID, res)
	if err != nil {
		if errors.Is(err, entitlement.ErrUnknownResource) {
			respondError(w, http.StatusNotFound, "unknown resource")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"resource": res,
		"used":     used,
		"limit":    limit,
	})
}

func (m *Module) handleStartTrial(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	sub, err := m.svc.CreateFreeTrial(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionConflict) {
			respondError(w, http.StatusConflict, "tenant already has a current subscription")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to start trial")
		return
	}

	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

type checkoutRequest struct {
	PlanID     string `json:"plan_id"`
	Provider   string `json:"provider"`
	Email      string `json:"email,omitempty"`
	SuccessURL string `json:"success_url,omitempty"`
}

func (m *Module) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlanID == "" || req.Provider == "" {
		respondError(w, http.StatusBadRequest, "plan_id and provider are required")
		return
	}

	checkout, err := m.svc.CreateCheckout(r.Context(), tenantID, req.PlanID, req.Provider, subscription.CheckoutOptions{
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrUnknownProvider):
			respondError(w, http.StatusBadRequest, "unknown payment provider")
		case errors.Is(err, plan.ErrPlanNotFound):
			respondError(w, http.StatusNotFound, "plan not found")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create checkout")
		}
		return
	}

	m.rememberSession(r.Context(), tenantID, req.PlanID, checkout)

	respondJSON(w, http.StatusOK, map[string]any{
		"provider":   checkout.Provider,
		"order_id":   checkout.OrderID,
		"url":        checkout.URL,
		"amount":     checkout.Amount,
		"currency":   checkout.Currency,
		"expires_at": checkout.ExpiresAt,
	})
}

// pendingSession is the checkout state kept while an order is payable,
// keyed by provider and order id.
type pendingSession struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	PlanID    string    `json:"plan_id"`
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

func sessionKey(provider, orderID string) string {
	return "checkout:" + provider + ":" + orderID
}

// rememberSession is best effort; losing a pending session only degrades
// order lookups, never payment attribution, which travels in provider
// metadata.
func (m *Module) rememberSession(ctx context.Context, tenantID uuid.UUID, planID string, checkout *payment.Checkout) {
	if m.sessions == nil {
		return
	}

	raw, err := json.Marshal(pendingSession{
		TenantID:  tenantID,
		PlanID:    planID,
		OrderID:   checkout.OrderID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := m.sessions.Set(ctx, sessionKey(checkout.Provider, checkout.OrderID), raw, m.sessionTTL); err != nil {
		m.logger.WarnContext(ctx, "failed to record checkout session",
			"provider", checkout.Provider,
			"order_id", checkout.OrderID,
			"error", err,
		)
	}
}

func (m *Module) handlePendingCheckout(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}
	if m.sessions == nil {
		respondError(w, http.StatusNotFound, "checkout session tracking is disabled")
		return
	}

	provider := chi.URLParam(r, "provider")
	orderID := chi.URLParam(r, "orderID")

	raw, err := m.sessions.Get(r.Context(), sessionKey(provider, orderID))
	if err != nil {
		if errors.Is(err, ttlstore.ErrKeyNotFound) {
			respondError(w, http.StatusNotFound, "no pending checkout for order")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load checkout session")
		return
	}

	var session pendingSession
	if err := json.Unmarshal(raw, &session); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to decode checkout session")
		return
	}
	if session.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "no pending checkout for order")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (m *Module) handleCancel(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.TenantIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "tenant not resolved")
		return
	}

	current, err := m.svc.GetActiveSubscription(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "no current subscription")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	canceled, err := m.svc.Cancel(r.Context(), current.ID)
	if err != nil {
		if errors.Is(err, subscription.ErrInvalidTransition) {
			respondError(w, http.StatusConflict, "subscription cannot be canceled")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to cancel subscription")
		return
	}

	respondJSON(w, http.StatusOK, toSubscriptionResponse(canceled))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
