// Package subscription implements the tenant subscription lifecycle: free
// trials, paid activations driven by payment provider webhooks, dunning,
// cancellation and expiry sweeps.
//
// The package is built around three invariants:
//
//   - One current subscription per tenant. Trialing, active and past_due
//     records count as current; activating a paid plan supersedes whatever
//     was current before inserting the new record, so a crash mid-way
//     leaves a tenant with zero current subscriptions, never two.
//   - Monotonic lifecycle. Status transitions follow a fixed state machine
//     and terminal records (canceled, expired) are never resurrected; a new
//     record supersedes them instead.
//   - Exactly-once event application. Every payment event passes through an
//     idempotency gate keyed by provider, order id and payment id. The gate
//     claims the key with an atomic insert-if-absent, so concurrent
//     duplicate deliveries resolve to a single winner; replays return the
//     recorded outcome without re-executing side effects.
//
// # Core Components
//
//   - Service: the lifecycle orchestrator and the only writer of
//     subscription records
//   - SubscriptionStore: conditional-write persistence (in-memory and
//     MongoDB implementations included)
//   - IdempotencyStore: payment event deduplication
//   - Notifier: downstream notifications fired at most once per event key
//   - Observer: per-event outcome hook for logging and metrics
//
// # Usage
//
//	catalog, err := plan.NewCatalog(ctx, plan.NewInMemSource(plans))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc := subscription.NewService(catalog,
//		subscription.NewMongoSubscriptionStore(db),
//		subscription.NewMongoIdempotencyStore(db),
//		subscription.WithProvider(razorpayProvider),
//		subscription.WithNotifier(emailNotifier),
//		subscription.WithLogger(logger),
//	)
//
//	// Assign a free trial on signup.
//	sub, err := svc.CreateFreeTrial(ctx, tenantID)
//
//	// Apply a verified, normalized webhook event.
//	sub, err = svc.ApplyPaymentEvent(ctx, event)
//
// Run ProcessExpired periodically to sweep lapsed subscriptions; the sweep
// is idempotent and safe to run from multiple replicas.
package subscription
