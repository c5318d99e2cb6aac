package plan

import (
	"context"
	"errors"
	"fmt"
)

// Source defines how plans are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is a read-mostly registry of purchasable plans. The plan map is
// treated as immutable after construction; thread-safety depends on that.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog loads plans from the source and validates them. Panics if src
// is nil to fail fast during initialization.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("plan: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	return &Catalog{plans: plans}, nil
}

// Get returns the plan with the given id or ErrPlanNotFound.
func (c *Catalog) Get(planID string) (Plan, error) {
	p, ok := c.plans[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// GetByProviderPriceID returns the plan mapped to a provider price id.
// Webhook payloads carry provider price ids, not our plan ids.
func (c *Catalog) GetByProviderPriceID(priceID string) (Plan, error) {
	if priceID == "" {
		return Plan{}, ErrPlanNotFound
	}
	for _, p := range c.plans {
		if p.ProviderPriceID == priceID {
			return p, nil
		}
	}
	return Plan{}, ErrPlanNotFound
}

// Verify checks if a plan id is valid.
func (c *Catalog) Verify(planID string) error {
	if _, ok := c.plans[planID]; !ok {
		return ErrPlanNotFound
	}
	return nil
}

// FreePlan returns the catalog's free plan, used for free-trial assignment.
func (c *Catalog) FreePlan() (Plan, error) {
	for _, p := range c.plans {
		if p.Type == TypeFree {
			return p, nil
		}
	}
	return Plan{}, ErrPlanNotFound
}

// Public returns all plans available for self-service signup.
func (c *Catalog) Public() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		if p.Public {
			out = append(out, p)
		}
	}
	return out
}

// validatePlans ensures plan configurations are internally consistent.
// Catches configuration errors at startup rather than during checkout.
func validatePlans(plans map[string]Plan) error {
	for planID, p := range plans {
		if p.ID != planID {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", planID, p.ID))
		}
		if p.TrialDays < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative trial days: %d", planID, p.TrialDays))
		}
		if p.Type.IsPaid() && p.Cycle == BillingCycleNone {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("paid plan %s has no billing cycle", planID))
		}
		if !p.Type.IsPaid() && p.Price.Amount != 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("free plan %s has a non-zero price", planID))
		}
	}
	return nil
}
