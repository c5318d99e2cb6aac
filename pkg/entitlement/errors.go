package entitlement

import "errors"

var (
	// ErrNoActiveSubscription is returned by gates when the tenant has no
	// subscription granting access.
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrPremiumRequired is returned when a paid-tier feature is accessed
	// by a tenant on the free tier.
	ErrPremiumRequired = errors.New("premium subscription required")

	// ErrPlanRequired is returned when a feature demands a specific plan
	// the tenant is not subscribed to.
	ErrPlanRequired = errors.New("required plan not subscribed")

	// ErrTrialLimitReached is returned when a trialing tenant hits a
	// resource ceiling.
	ErrTrialLimitReached = errors.New("trial limit reached")

	// ErrUnknownResource is returned when no counter is registered for a
	// resource kind.
	ErrUnknownResource = errors.New("unknown resource kind")
)
