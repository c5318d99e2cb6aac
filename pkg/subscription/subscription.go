package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
)

// Status represents the current state of a subscription.
type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// CurrentStatuses are the statuses counting as "current": at most one
// subscription per tenant may hold one of them at any instant.
var CurrentStatuses = []Status{StatusTrialing, StatusActive, StatusPastDue}

// IsCurrent reports whether the status counts toward the one-current-
// subscription-per-tenant invariant.
func (s Status) IsCurrent() bool {
	return s == StatusTrialing || s == StatusActive || s == StatusPastDue
}

// IsTerminal reports whether the status is final. Terminal subscriptions are
// never resurrected; a new record supersedes them instead.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// Subscription is the per-tenant billing aggregate. The lifecycle service is
// its only writer.
type Subscription struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	PlanID   string
	PlanType plan.Type
	Status   Status

	StartDate   time.Time
	EndDate     *time.Time // absent for plans without a billing period
	TrialEndsAt *time.Time // set only while a trial window applies
	AutoRenew   bool

	Amount   int64
	Currency string
	Cycle    plan.BillingCycle

	// Provider correlation fields; empty for free plans.
	ProviderName           string
	ProviderCustomerID     string
	ProviderSubscriptionID string
	ProviderOrderID        string
	ProviderPaymentID      string

	Metadata map[string]string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
}

// IsTrialing returns true if the subscription is in trial status.
func (s *Subscription) IsTrialing() bool {
	return s != nil && s.Status == StatusTrialing
}

// IsPaid returns true if the subscription is on a paid tier.
func (s *Subscription) IsPaid() bool {
	return s != nil && s.PlanType.IsPaid()
}

// IsCurrentAt reports whether the subscription grants access at the given
// time: a current status and an end date that is absent or in the future.
func (s *Subscription) IsCurrentAt(now time.Time) bool {
	if s == nil || !s.Status.IsCurrent() {
		return false
	}
	if s.EndDate != nil && !s.EndDate.After(now) {
		return false
	}
	return true
}

// TrialDaysRemainingAt returns the number of days remaining in the trial at
// a given time, rounding partial days up. Returns 0 if not trialing or the
// trial has ended.
func (s *Subscription) TrialDaysRemainingAt(now time.Time) int {
	if !s.IsTrialing() || s.TrialEndsAt == nil {
		return 0
	}

	remaining := s.TrialEndsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}

	days := remaining.Hours() / 24
	return int(days + 0.5)
}
