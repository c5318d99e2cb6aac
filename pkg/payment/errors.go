package payment

import "errors"

var (
	// ErrInvalidSignature is returned when webhook signature verification
	// fails. The payload must never reach normalization.
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrMalformedPayload is returned when the webhook body cannot be parsed.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnsupportedEvent is returned for provider events this engine does
	// not consume. Such events are acknowledged and ignored.
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")

	// ErrUnattributableEvent is returned when an otherwise valid event lacks
	// the tenant/plan metadata attached at checkout creation. Such events
	// are logged and dropped; retrying cannot attribute them.
	ErrUnattributableEvent = errors.New("webhook event cannot be attributed to a tenant")

	// ErrMissingCredentials is returned when a provider is constructed
	// without its API credentials or webhook secret.
	ErrMissingCredentials = errors.New("payment provider credentials are required")

	// ErrCheckoutFailed is returned when the provider rejects a checkout
	// session creation.
	ErrCheckoutFailed = errors.New("failed to create checkout session")
)
