package subscription

import "errors"

var (
	// ErrSubscriptionNotFound is returned when no subscription matches.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionConflict is returned when creating a subscription would
	// leave a tenant with two current records.
	ErrSubscriptionConflict = errors.New("tenant already has a current subscription")

	// ErrInvalidTransition is returned when a status change violates the
	// lifecycle. Terminal records are never resurrected.
	ErrInvalidTransition = errors.New("invalid subscription status transition")

	// ErrDuplicateEvent is returned by IdempotencyStore.Begin when the event
	// key has already been claimed by an earlier delivery.
	ErrDuplicateEvent = errors.New("payment event already processed")

	// ErrEventInFlight is returned when a duplicate delivery arrives while
	// the first one is still being orchestrated.
	ErrEventInFlight = errors.New("payment event is being processed")

	// ErrUnknownProvider is returned when an event names a provider no
	// adapter was registered for.
	ErrUnknownProvider = errors.New("unknown payment provider")
)
