package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// EventType is the provider-neutral payment event type.
type EventType string

const (
	EventPaymentCaptured EventType = "payment_captured"
	EventPaymentFailed   EventType = "payment_failed"
	EventOrderPaid       EventType = "order_paid"
)

// Event is a provider-neutral payment notification. Constructed fresh per
// inbound webhook call and never persisted beyond its idempotency record.
type Event struct {
	Provider      string
	Type          EventType
	ProviderEvent string // original provider event name
	OrderID       string
	PaymentID     string
	TenantID      uuid.UUID
	PlanID        string
	PayloadDigest string
	OccurredAt    time.Time
}

// IdempotencyKey derives the natural key used to deduplicate deliveries of
// the same provider event.
func (e *Event) IdempotencyKey() string {
	return e.Provider + ":" + e.OrderID + ":" + e.PaymentID
}

// Attributed reports whether the event carries enough metadata to be applied
// to a tenant. Unattributable events are logged and dropped.
func (e *Event) Attributed() bool {
	return e.TenantID != uuid.Nil && e.PlanID != ""
}

// Digest returns the hex-encoded sha256 of a raw webhook body.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
