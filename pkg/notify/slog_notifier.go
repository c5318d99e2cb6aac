package notify

import (
	"context"
	"log/slog"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

// SlogNotifier implements subscription.Notifier by logging lifecycle
// changes. Used in development and as a fallback when no email transport is
// configured.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a logging notifier. A nil logger falls back to
// slog.Default.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) SubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	n.logger.InfoContext(ctx, "subscription activated",
		slog.String("tenant_id", sub.TenantID.String()),
		slog.String("plan_id", sub.PlanID),
		slog.String("status", string(sub.Status)),
	)
	return nil
}

func (n *SlogNotifier) SubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	n.logger.InfoContext(ctx, "subscription canceled",
		slog.String("tenant_id", sub.TenantID.String()),
		slog.String("plan_id", sub.PlanID),
	)
	return nil
}
