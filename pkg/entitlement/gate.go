package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

// SubscriptionReader is the narrow view of the lifecycle service the gate
// needs: the tenant's current subscription record.
type SubscriptionReader interface {
	GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error)
}

// Decision is the result of a trial limit check. Deny carries the ceiling
// and current usage so callers can render "X of Y used".
type Decision struct {
	Allowed  bool
	Resource Resource
	Used     int64
	Limit    int64
}

// Message returns the user-facing description of a denied decision.
func (d Decision) Message() string {
	if d.Allowed {
		return ""
	}
	return fmt.Sprintf("trial limit reached for %s: %d of %d used", d.Resource, d.Used, d.Limit)
}

// Gate answers entitlement questions for resolved tenants. Premium checks
// fail closed when no subscription exists; trial limit checks fail open,
// because absence of a subscription record is not itself a reason to block
// an authenticated tenant's first-time usage.
type Gate struct {
	subs     SubscriptionReader
	limits   TrialLimits
	counters CounterRegistry
	now      func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithTrialLimits overrides the default trial ceilings.
func WithTrialLimits(limits TrialLimits) GateOption {
	return func(g *Gate) {
		if limits != nil {
			g.limits = limits
		}
	}
}

// WithGateClock overrides the time source, used by tests.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates an entitlement gate. Panics if the subscription reader is
// nil; a nil registry simply leaves every resource unlimited.
func NewGate(subs SubscriptionReader, counters CounterRegistry, opts ...GateOption) *Gate {
	if subs == nil {
		panic("entitlement: SubscriptionReader is required")
	}
	if counters == nil {
		counters = NewRegistry()
	}

	g := &Gate{
		subs:     subs,
		limits:   DefaultTrialLimits(),
		counters: counters,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireActive fails with ErrNoActiveSubscription unless the tenant holds
// a subscription granting access right now.
func (g *Gate) RequireActive(ctx context.Context, tenantID uuid.UUID) error {
	sub, err := g.current(ctx, tenantID)
	if err != nil {
		return err
	}
	if !IsActive(sub, g.now()) {
		return ErrNoActiveSubscription
	}
	return nil
}

// RequirePremium fails unless the tenant holds an active paid-tier
// subscription.
func (g *Gate) RequirePremium(ctx context.Context, tenantID uuid.UUID) error {
	sub, err := g.current(ctx, tenantID)
	if err != nil {
		return err
	}
	if !IsActive(sub, g.now()) {
		return ErrNoActiveSubscription
	}
	if !IsPremium(sub) {
		return ErrPremiumRequired
	}
	return nil
}

// RequirePlan fails unless the tenant holds an active subscription to the
// given plan.
func (g *Gate) RequirePlan(ctx context.Context, tenantID uuid.UUID, planID string) error {
	sub, err := g.current(ctx, tenantID)
	if err != nil {
		return err
	}
	if !IsActive(sub, g.now()) {
		return ErrNoActiveSubscription
	}
	if !IsOnPlan(sub, planID) {
		return ErrPlanRequired
	}
	return nil
}

// current maps a missing record to ErrNoActiveSubscription so the Require
// gates fail closed.
func (g *Gate) current(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error) {
	sub, err := g.subs.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}
	return sub, nil
}

// CheckLimit decides whether a trialing tenant may create another instance
// of the resource. Non-trialing tenants and tenants without a subscription
// record are always allowed; only an explicit trialing status enforces the
// ceiling. Counts are computed fresh on every call.
func (g *Gate) CheckLimit(ctx context.Context, tenantID uuid.UUID, res Resource) (Decision, error) {
	allow := Decision{Allowed: true, Resource: res}

	sub, err := g.subs.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return allow, nil
		}
		return Decision{Resource: res}, err
	}
	if !IsTrialing(sub) {
		return allow, nil
	}

	limit := g.limits.Limit(res)
	if limit == Unlimited {
		return allow, nil
	}

	counter, ok := g.counters[res]
	if !ok {
		return Decision{Resource: res}, fmt.Errorf("%w: %s", ErrUnknownResource, res)
	}

	used, err := counter(ctx, tenantID)
	if err != nil {
		return Decision{Resource: res}, err
	}

	if used >= limit {
		return Decision{Allowed: false, Resource: res, Used: used, Limit: limit}, nil
	}
	return Decision{Allowed: true, Resource: res, Used: used, Limit: limit}, nil
}

// CheckCreate is the error-typed form of CheckLimit for use at the
// access-control boundary.
func (g *Gate) CheckCreate(ctx context.Context, tenantID uuid.UUID, res Resource) error {
	decision, err := g.CheckLimit(ctx, tenantID, res)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrTrialLimitReached, decision.Message())
	}
	return nil
}

// Usage reports current usage against the trial ceiling regardless of
// subscription status, for dashboard rendering.
func (g *Gate) Usage(ctx context.Context, tenantID uuid.UUID, res Resource) (used, limit int64, err error) {
	limit = g.limits.Limit(res)

	counter, ok := g.counters[res]
	if !ok {
		return 0, limit, fmt.Errorf("%w: %s", ErrUnknownResource, res)
	}
	used, err = counter(ctx, tenantID)
	if err != nil {
		return 0, limit, err
	}
	return used, limit, nil
}
