package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
)

// Service is the subscription lifecycle orchestrator - the only writer of
// subscription records.
type Service interface {
	// CreateFreeTrial assigns the free trial plan to a tenant with no
	// current subscription. Re-invoking while a free trial is already
	// running returns the existing record unchanged.
	CreateFreeTrial(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// CreateCheckout opens a provider checkout session for a paid plan,
	// attaching the tenant/plan metadata webhooks need for attribution.
	CreateCheckout(ctx context.Context, tenantID uuid.UUID, planID, providerName string, opts CheckoutOptions) (*payment.Checkout, error)

	// ApplyPaymentEvent applies a normalized payment event through the
	// idempotency gate. Replays with the same event key return the prior
	// result without re-executing side effects.
	ApplyPaymentEvent(ctx context.Context, ev *payment.Event) (*Subscription, error)

	// CreatePaidSubscriptionFromPlan is the explicit-action equivalent of a
	// captured-payment event and shares its idempotency gate.
	CreatePaidSubscriptionFromPlan(ctx context.Context, tenantID uuid.UUID, planID, providerName, orderID, paymentID string) (*Subscription, error)

	// Cancel transitions a subscription to canceled from any non-terminal
	// state and disables auto-renew.
	Cancel(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error)

	// ProcessExpired sweeps every current subscription whose end date has
	// passed into StatusExpired. Idempotent and safe to run concurrently.
	ProcessExpired(ctx context.Context) (int64, error)

	// GetActiveSubscription returns the tenant's current subscription or
	// ErrSubscriptionNotFound.
	GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// ListSubscriptions returns the tenant's subscription history, newest
	// first.
	ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error)

	// GetTrialStatus reports whether the tenant is trialing and how long
	// remains. Tenants without a subscription are simply not trialing.
	GetTrialStatus(ctx context.Context, tenantID uuid.UUID) (TrialStatus, error)

	// Provider returns a registered payment provider by name.
	Provider(name string) (payment.Provider, bool)
}

// CheckoutOptions contains optional checkout session parameters.
type CheckoutOptions struct {
	Email      string // pre-fill billing email if known
	SuccessURL string // redirect after successful payment
}

// TrialStatus summarizes a tenant's trial window.
type TrialStatus struct {
	Trialing      bool
	PlanID        string
	TrialEndsAt   *time.Time
	DaysRemaining int
}

type service struct {
	catalog   *plan.Catalog
	store     SubscriptionStore
	idem      IdempotencyStore
	providers map[string]payment.Provider
	notifier  Notifier
	observer  Observer
	logger    *slog.Logger
	locks     keyMutex
	now       func() time.Time
}

// NewService creates the lifecycle orchestrator. Panics if catalog, store or
// idempotency store are nil to fail fast during initialization.
func NewService(catalog *plan.Catalog, store SubscriptionStore, idem IdempotencyStore, opts ...ServiceOption) Service {
	if catalog == nil {
		panic("subscription: plan catalog is required")
	}
	if store == nil {
		panic("subscription: SubscriptionStore is required")
	}
	if idem == nil {
		panic("subscription: IdempotencyStore is required")
	}

	s := &service{
		catalog:   catalog,
		store:     store,
		idem:      idem,
		providers: make(map[string]payment.Provider),
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer == nil {
		s.observer = NewSlogObserver(s.logger)
	}

	return s
}

func (s *service) Provider(name string) (payment.Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

func (s *service) CreateFreeTrial(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("subscription: tenant id is required")
	}

	unlock := s.locks.Lock(tenantID)
	defer unlock()

	current, err := s.store.GetCurrent(ctx, tenantID)
	switch {
	case err == nil:
		// Re-assigning a running free trial is a no-op; anything else
		// current must be superseded by payment, not by a trial.
		if current.PlanType == plan.TypeFree && current.Status == StatusTrialing {
			return current, nil
		}
		return nil, ErrSubscriptionConflict
	case errors.Is(err, ErrSubscriptionNotFound):
		// proceed
	default:
		return nil, err
	}

	freePlan, err := s.catalog.FreePlan()
	if err != nil {
		return nil, err
	}

	now := s.now()
	trialEnds := freePlan.TrialEndsAt(now)
	sub := &Subscription{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PlanID:      freePlan.ID,
		PlanType:    plan.TypeFree,
		Status:      StatusTrialing,
		StartDate:   now,
		EndDate:     &trialEnds,
		TrialEndsAt: &trialEnds,
		Cycle:       plan.BillingCycleNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "free trial assigned",
		slog.String("tenant_id", tenantID.String()),
		slog.Time("trial_ends_at", trialEnds),
	)

	return sub, nil
}

func (s *service) CreateCheckout(ctx context.Context, tenantID uuid.UUID, planID, providerName string, opts CheckoutOptions) (*payment.Checkout, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	p, err := s.catalog.Get(planID)
	if err != nil {
		return nil, err
	}

	return provider.CreateCheckout(ctx, payment.CheckoutRequest{
		TenantID:   tenantID,
		Plan:       p,
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
	})
}

func (s *service) ApplyPaymentEvent(ctx context.Context, ev *payment.Event) (*Subscription, error) {
	if ev == nil {
		return nil, errors.New("subscription: nil payment event")
	}
	if !ev.Attributed() {
		return nil, payment.ErrUnattributableEvent
	}

	rec := &IdempotencyRecord{
		Key:           ev.IdempotencyKey(),
		Provider:      ev.Provider,
		EventType:     ev.Type,
		PayloadDigest: ev.PayloadDigest,
		FirstSeenAt:   s.now(),
		Outcome:       Outcome{Status: OutcomePending},
	}

	existing, err := s.idem.Begin(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return s.replayOutcome(ctx, ev, existing)
		}
		return nil, err
	}

	sub, err := s.orchestrate(ctx, ev)
	if err != nil {
		// Drop the claim so a provider redelivery can retry; the webhook
		// handler surfaces the failure instead of fabricating success.
		if relErr := s.idem.Release(ctx, rec.Key); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release event key",
				slog.String("event_key", rec.Key),
				slog.Any("error", relErr),
			)
		}
		s.observer(ctx, ev, Outcome{}, err)
		return nil, err
	}

	outcome := Outcome{Status: OutcomeIgnored}
	if sub != nil {
		outcome = Outcome{Status: OutcomeApplied, SubscriptionID: sub.ID}
	}
	if err := s.idem.Commit(ctx, rec.Key, outcome); err != nil {
		// The mutation is committed; a lost outcome only degrades replay
		// responses, it cannot double-apply thanks to the order fallback.
		s.logger.ErrorContext(ctx, "failed to commit event outcome",
			slog.String("event_key", rec.Key),
			slog.Any("error", err),
		)
	}

	s.observer(ctx, ev, outcome, nil)

	if sub != nil && (ev.Type == payment.EventPaymentCaptured || ev.Type == payment.EventOrderPaid) {
		s.notifyActivated(ctx, sub)
	}

	return sub, nil
}

func (s *service) CreatePaidSubscriptionFromPlan(ctx context.Context, tenantID uuid.UUID, planID, providerName, orderID, paymentID string) (*Subscription, error) {
	ev := &payment.Event{
		Provider:   providerName,
		Type:       payment.EventOrderPaid,
		OrderID:    orderID,
		PaymentID:  paymentID,
		TenantID:   tenantID,
		PlanID:     planID,
		OccurredAt: s.now(),
	}
	return s.ApplyPaymentEvent(ctx, ev)
}

// replayOutcome resolves a duplicate delivery to the same observable result
// as the first one, without side effects.
func (s *service) replayOutcome(ctx context.Context, ev *payment.Event, prior *IdempotencyRecord) (*Subscription, error) {
	if prior == nil {
		return nil, ErrEventInFlight
	}

	switch prior.Outcome.Status {
	case OutcomeApplied:
		sub, err := s.store.GetByID(ctx, prior.Outcome.SubscriptionID)
		if err != nil {
			return nil, err
		}
		s.observer(ctx, ev, prior.Outcome, nil)
		return sub, nil
	case OutcomeIgnored:
		s.observer(ctx, ev, prior.Outcome, nil)
		return nil, nil
	default:
		return nil, ErrEventInFlight
	}
}

// orchestrate applies a gate-winning event to the store.
func (s *service) orchestrate(ctx context.Context, ev *payment.Event) (*Subscription, error) {
	switch ev.Type {
	case payment.EventPaymentCaptured, payment.EventOrderPaid:
		return s.activatePaid(ctx, ev)
	case payment.EventPaymentFailed:
		return s.markPastDue(ctx, ev)
	default:
		return nil, fmt.Errorf("%w: %s", payment.ErrUnsupportedEvent, ev.Type)
	}
}

// activatePaid supersedes any current subscription and inserts the new paid
// record. Supersede-then-insert ordering bounds the worst-case failure mode
// at "tenant temporarily has zero current subscriptions", never two.
func (s *service) activatePaid(ctx context.Context, ev *payment.Event) (*Subscription, error) {
	p, err := s.catalog.Get(ev.PlanID)
	if err != nil {
		// Webhook payloads sometimes carry the provider's price id instead
		// of our plan id.
		if p, err = s.catalog.GetByProviderPriceID(ev.PlanID); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(ev.TenantID)
	defer unlock()

	// Replay safety net for keys pruned from the idempotency set: the same
	// order/payment pair never creates a second record.
	if existing, err := s.store.FindByProviderOrder(ctx, ev.Provider, ev.OrderID, ev.PaymentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	if _, err := s.store.SupersedeCurrent(ctx, ev.TenantID); err != nil {
		return nil, err
	}

	now := s.now()
	end := p.PeriodEnd(now)
	sub := &Subscription{
		ID:                uuid.New(),
		TenantID:          ev.TenantID,
		PlanID:            p.ID,
		PlanType:          p.Type,
		Status:            StatusActive,
		StartDate:         now,
		EndDate:           &end,
		AutoRenew:         true,
		Amount:            p.Price.Amount,
		Currency:          p.Price.Currency,
		Cycle:             p.Cycle,
		ProviderName:      ev.Provider,
		ProviderOrderID:   ev.OrderID,
		ProviderPaymentID: ev.PaymentID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.Insert(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "paid subscription activated",
		slog.String("tenant_id", ev.TenantID.String()),
		slog.String("plan_id", p.ID),
		slog.String("provider", ev.Provider),
	)

	return sub, nil
}

// markPastDue flags the tenant's active subscription after a failed
// payment. Tenants without a current paid subscription are left untouched.
func (s *service) markPastDue(ctx context.Context, ev *payment.Event) (*Subscription, error) {
	unlock := s.locks.Lock(ev.TenantID)
	defer unlock()

	current, err := s.store.GetCurrent(ctx, ev.TenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if current.Status != StatusActive {
		return nil, nil
	}

	return s.store.TransitionStatus(ctx, current.ID, []Status{StatusActive}, StatusPastDue)
}

func (s *service) Cancel(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, sub.Status)
	}

	unlock := s.locks.Lock(sub.TenantID)
	defer unlock()

	updated, err := s.store.TransitionStatus(ctx, subscriptionID, CurrentStatuses, StatusCanceled)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifyAsync(ctx, func(ctx context.Context) error {
			return s.notifier.SubscriptionCanceled(ctx, updated)
		})
	}

	return updated, nil
}

func (s *service) ProcessExpired(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired subscriptions swept", slog.Int64("count", n))
	}
	return n, nil
}

func (s *service) GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	return s.store.GetCurrent(ctx, tenantID)
}

func (s *service) ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error) {
	return s.store.ListByTenant(ctx, tenantID)
}

func (s *service) GetTrialStatus(ctx context.Context, tenantID uuid.UUID) (TrialStatus, error) {
	current, err := s.store.GetCurrent(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return TrialStatus{}, nil
		}
		return TrialStatus{}, err
	}
	if !current.IsTrialing() {
		return TrialStatus{PlanID: current.PlanID}, nil
	}

	return TrialStatus{
		Trialing:      true,
		PlanID:        current.PlanID,
		TrialEndsAt:   current.TrialEndsAt,
		DaysRemaining: current.TrialDaysRemainingAt(s.now()),
	}, nil
}

func (s *service) notifyActivated(ctx context.Context, sub *Subscription) {
	if s.notifier == nil {
		return
	}
	s.notifyAsync(ctx, func(ctx context.Context) error {
		return s.notifier.SubscriptionActivated(ctx, sub)
	})
}

// notifyAsync delivers a notification off the request path. Failures are
// logged; billing state never depends on delivery.
func (s *service) notifyAsync(ctx context.Context, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.ErrorContext(ctx, "subscription notification failed", slog.Any("error", err))
		}
	}()
}
