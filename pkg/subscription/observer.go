package subscription

import (
	"context"
	"log/slog"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
)

// Observer is invoked after every payment-event orchestration attempt,
// separate from the control flow, so logging and metrics never influence
// outcomes and tests can assert on results without scraping log output.
type Observer func(ctx context.Context, ev *payment.Event, outcome Outcome, err error)

// NewSlogObserver returns an Observer that logs every orchestration result.
func NewSlogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, ev *payment.Event, outcome Outcome, err error) {
		attrs := []any{
			slog.String("provider", ev.Provider),
			slog.String("event_type", string(ev.Type)),
			slog.String("event_key", ev.IdempotencyKey()),
			slog.String("outcome", string(outcome.Status)),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.ErrorContext(ctx, "payment event orchestration failed", attrs...)
			return
		}
		logger.InfoContext(ctx, "payment event processed", attrs...)
	}
}

// Notifier delivers downstream notifications after lifecycle changes. The
// idempotency gate guarantees each notification fires at most once per
// event key; delivery failures are logged, never retried into the billing
// path.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, sub *Subscription) error
	SubscriptionCanceled(ctx context.Context, sub *Subscription) error
}
