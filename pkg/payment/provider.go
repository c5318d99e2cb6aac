package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
)

// Provider translates one payment provider's checkout objects and webhook
// payloads into the provider-neutral model. Implementations wrap the
// official SDKs and keep provider quirks internal.
type Provider interface {
	// Name returns the stable provider identifier used in idempotency keys.
	Name() string

	// VerifySignature validates the webhook signature against the raw,
	// unparsed request body. Must be called before Normalize; an invalid
	// signature returns ErrInvalidSignature and the payload is discarded.
	VerifySignature(rawBody []byte, signatureHeader string) error

	// Normalize parses a verified webhook body into an Event. Returns
	// ErrUnsupportedEvent for event types this engine does not consume and
	// ErrUnattributableEvent when tenant/plan metadata is missing.
	Normalize(ctx context.Context, rawBody []byte) (*Event, error)

	// CreateCheckout opens a checkout session for a tenant and plan,
	// attaching the tenant/plan metadata webhooks need for attribution.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// CheckoutRequest carries everything a provider needs to open a checkout
// session.
type CheckoutRequest struct {
	TenantID   uuid.UUID
	Plan       plan.Plan
	Email      string // pre-fill billing email if known
	SuccessURL string // redirect after successful payment
}

// Checkout represents a created checkout session.
type Checkout struct {
	Provider  string
	OrderID   string // provider's order/transaction identifier
	URL       string // hosted checkout URL, empty for client-driven flows
	Amount    int64
	Currency  string
	ExpiresAt time.Time
}
