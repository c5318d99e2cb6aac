package entitlement

import (
	"time"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

// The predicates in this file are pure functions over a subscription record.
// A nil record always evaluates to "not entitled": callers must never infer
// free access from the absence of a subscription.

// IsActive reports whether the subscription grants access at the given
// time: status is trialing, active or past_due, and the end date is absent
// or in the future.
func IsActive(sub *subscription.Subscription, now time.Time) bool {
	return sub.IsCurrentAt(now)
}

// IsPremium reports whether the subscription is on a paid tier.
func IsPremium(sub *subscription.Subscription) bool {
	return sub.IsPaid()
}

// IsTrialing reports whether the subscription is in its trial window.
func IsTrialing(sub *subscription.Subscription) bool {
	return sub.IsTrialing()
}

// IsOnPlan reports whether the subscription is on the given plan.
func IsOnPlan(sub *subscription.Subscription, planID string) bool {
	return sub != nil && sub.PlanID == planID
}
