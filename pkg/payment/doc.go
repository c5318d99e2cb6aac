// Package payment adapts external payment providers to a provider-neutral
// event model.
//
// SafeIn accepts payments through two unrelated providers: Razorpay, a
// ledger-style gateway where checkout creates an order and webhooks
// reference order and payment ids separately, and Paddle, a hosted-checkout
// gateway keyed by transaction id. Each adapter verifies the provider's
// webhook signature against the raw request body, tolerates the payload
// shape variants the provider emits, and extracts the tenant/plan metadata
// that was attached when the checkout session was created.
//
// The normalized Event carries a natural idempotency key
// (provider:orderID:paymentID) consumed by the subscription lifecycle
// engine to make at-least-once webhook delivery safe.
package payment
