package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/modules/billing"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

func TestSweeperExpiresLapsedSubscriptions(t *testing.T) {
	t.Parallel()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
		"free-trial": {
			ID:        "free-trial",
			Name:      "Free Trial",
			Type:      plan.TypeFree,
			Cycle:     plan.BillingCycleNone,
			TrialDays: 14,
		},
	}))
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := subscription.NewService(catalog,
		subscription.NewInMemorySubscriptionStore(),
		subscription.NewInMemoryIdempotencyStore(),
		subscription.WithClock(func() time.Time { return now }),
	)

	tenantID := uuid.New()
	_, err = svc.CreateFreeTrial(context.Background(), tenantID)
	require.NoError(t, err)

	// Jump past the trial window, then let the sweeper run a few cycles.
	now = now.AddDate(0, 0, 15)

	sweeper := billing.NewSweeper(svc, billing.WithSweepInterval(5*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = sweeper.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = svc.GetActiveSubscription(context.Background(), tenantID)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}
