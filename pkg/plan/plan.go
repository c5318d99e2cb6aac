package plan

import "time"

// Type distinguishes the free tier from paid tiers.
type Type string

const (
	TypeFree       Type = "free"
	TypeStarter    Type = "starter"
	TypePremium    Type = "premium"
	TypeEnterprise Type = "enterprise"
)

// IsPaid reports whether the plan type is a paid tier.
func (t Type) IsPaid() bool {
	return t != TypeFree && t != ""
}

// BillingCycle represents the billing frequency for a plan.
type BillingCycle string

const (
	BillingCycleNone    BillingCycle = "none" // free plans with no billing
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

// Money represents a monetary amount in the smallest currency unit.
// For example ₹499.00 is Amount: 49900, Currency: "INR".
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"` // ISO 4217 code
}

// Plan describes a purchasable subscription plan. ProviderPriceID maps the
// plan to the payment provider's catalog entry so checkout sessions and
// webhook payloads can be attributed back to it.
type Plan struct {
	ID              string
	Name            string
	Description     string
	Type            Type
	Cycle           BillingCycle
	Price           Money
	TrialDays       int
	ProviderPriceID string
	Public          bool // available for self-service signup
}

// PeriodEnd computes when a billing period starting at the given time ends.
// Free plans have no billing period and return the zero time.
func (p Plan) PeriodEnd(start time.Time) time.Time {
	switch p.Cycle {
	case BillingCycleMonthly:
		return start.AddDate(0, 1, 0).UTC()
	case BillingCycleAnnual:
		return start.AddDate(1, 0, 0).UTC()
	default:
		return time.Time{}
	}
}

// TrialEndsAt calculates when the trial period ends.
// Returns startedAt unchanged if the plan carries no trial.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}
