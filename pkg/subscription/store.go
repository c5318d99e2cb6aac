package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
)

// SubscriptionStore defines subscription persistence. Implementations must
// back TransitionStatus, SupersedeCurrent and ExpireDue with conditional
// writes so concurrent transitions stay monotonic.
type SubscriptionStore interface {
	// GetCurrent returns the tenant's single current subscription
	// (trialing, active or past_due), or ErrSubscriptionNotFound.
	GetCurrent(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// GetByID returns the subscription or ErrSubscriptionNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindByProviderOrder returns the subscription created for a provider
	// order/payment pair, or ErrSubscriptionNotFound. Used for replay
	// lookups after idempotency records have been pruned.
	FindByProviderOrder(ctx context.Context, provider, orderID, paymentID string) (*Subscription, error)

	// Insert stores a new subscription record.
	Insert(ctx context.Context, sub *Subscription) error

	// TransitionStatus conditionally moves a subscription from one of the
	// given statuses to the target and returns the updated record. A move
	// to StatusCanceled also clears auto-renew and stamps CancelledAt.
	// Returns ErrInvalidTransition when the record exists but its status is
	// not in from, ErrSubscriptionNotFound when it does not exist.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Subscription, error)

	// SupersedeCurrent cancels every current subscription of the tenant and
	// returns how many records were affected.
	SupersedeCurrent(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// ExpireDue transitions every current subscription whose end date has
	// passed to StatusExpired and returns how many records were affected.
	// Safe to run concurrently with itself and with other transitions.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// ListByTenant returns the tenant's subscription history, newest first.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error)
}

// OutcomeStatus describes what an orchestration attempt did.
type OutcomeStatus string

const (
	// OutcomePending marks a claimed event whose orchestration has not
	// committed yet.
	OutcomePending OutcomeStatus = "pending"
	// OutcomeApplied marks an event that mutated subscription state.
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeIgnored marks a valid event that required no state change.
	OutcomeIgnored OutcomeStatus = "ignored"
)

// Outcome is the externally observable result recorded for an event key.
// Replayed deliveries return it without re-executing side effects.
type Outcome struct {
	Status         OutcomeStatus
	SubscriptionID uuid.UUID
	Note           string
}

// IdempotencyRecord tracks one payment event key. Records outlive the
// events themselves and may be pruned after a retention window safely
// longer than any provider's redelivery window.
type IdempotencyRecord struct {
	Key           string
	Provider      string
	EventType     payment.EventType
	PayloadDigest string
	FirstSeenAt   time.Time
	Outcome       Outcome
}

// IdempotencyStore persists event keys. Begin must be an atomic
// insert-if-absent (unique-constraint insert, not read-then-write): two
// truly concurrent deliveries of the same event must resolve to exactly one
// winner.
type IdempotencyStore interface {
	// Begin claims the record's key. On success the caller won the insert
	// and must orchestrate. If the key exists, returns the stored record
	// together with ErrDuplicateEvent.
	Begin(ctx context.Context, rec *IdempotencyRecord) (*IdempotencyRecord, error)

	// Commit records the outcome for a claimed key.
	Commit(ctx context.Context, key string, outcome Outcome) error

	// Release drops a claimed key after a failed orchestration so that a
	// provider redelivery can retry.
	Release(ctx context.Context, key string) error
}
