package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Resource represents a countable tenant resource type.
type Resource string

// Resources gated while a tenant is trialing.
const (
	ResourceEmployees    Resource = "employees"
	ResourceVisitors     Resource = "visitors"
	ResourceAppointments Resource = "appointments"
)

// Unlimited represents a resource with no ceiling.
const Unlimited int64 = -1

// TrialLimits maps resources to the maximum allowed while trialing.
type TrialLimits map[Resource]int64

// DefaultTrialLimits are the stock trial ceilings.
func DefaultTrialLimits() TrialLimits {
	return TrialLimits{
		ResourceEmployees:    5,
		ResourceVisitors:     50,
		ResourceAppointments: 25,
	}
}

// Limit returns the ceiling for a resource; resources without an entry are
// unlimited.
func (l TrialLimits) Limit(res Resource) int64 {
	if limit, ok := l[res]; ok {
		return limit
	}
	return Unlimited
}

// CounterFunc returns the current usage for a tenant resource. Counts are
// computed fresh per call against non-deleted records only; there is no
// running counter to drift under concurrent creates and deletes.
type CounterFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)

// CounterRegistry maps a Resource to its CounterFunc.
// Not thread-safe: register all counters at startup only.
type CounterRegistry map[Resource]CounterFunc

// NewRegistry returns a new, empty CounterRegistry.
func NewRegistry() CounterRegistry {
	return make(CounterRegistry)
}

// Register sets or replaces the CounterFunc for the given resource. Panics
// if fn is nil.
func (r CounterRegistry) Register(res Resource, fn CounterFunc) {
	if fn == nil {
		panic(fmt.Sprintf("entitlement: CounterFunc for resource %q cannot be nil", res))
	}
	r[res] = fn
}
