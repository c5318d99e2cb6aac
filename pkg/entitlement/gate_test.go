package entitlement_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/entitlement"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

func gateTestService(t *testing.T) subscription.Service {
	t.Helper()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
		"free-trial": {
			ID:        "free-trial",
			Name:      "Free Trial",
			Type:      plan.TypeFree,
			Cycle:     plan.BillingCycleNone,
			TrialDays: 14,
		},
		"premium-monthly": {
			ID:    "premium-monthly",
			Name:  "Premium Monthly",
			Type:  plan.TypePremium,
			Cycle: plan.BillingCycleMonthly,
			Price: plan.Money{Amount: 299900, Currency: "INR"},
		},
	}))
	require.NoError(t, err)

	return subscription.NewService(catalog,
		subscription.NewInMemorySubscriptionStore(),
		subscription.NewInMemoryIdempotencyStore(),
	)
}

func TestGateRequire(t *testing.T) {
	t.Parallel()

	t.Run("no subscription fails closed", func(t *testing.T) {
		t.Parallel()

		gate := entitlement.NewGate(gateTestService(t), nil)
		tenantID := uuid.New()

		require.ErrorIs(t, gate.RequireActive(context.Background(), tenantID), entitlement.ErrNoActiveSubscription)
		require.ErrorIs(t, gate.RequirePremium(context.Background(), tenantID), entitlement.ErrNoActiveSubscription)
		require.ErrorIs(t, gate.RequirePlan(context.Background(), tenantID, "premium-monthly"), entitlement.ErrNoActiveSubscription)
	})

	t.Run("free trial is active but not premium", func(t *testing.T) {
		t.Parallel()

		svc := gateTestService(t)
		gate := entitlement.NewGate(svc, nil)
		tenantID := uuid.New()

		_, err := svc.CreateFreeTrial(context.Background(), tenantID)
		require.NoError(t, err)

		require.NoError(t, gate.RequireActive(context.Background(), tenantID))
		require.ErrorIs(t, gate.RequirePremium(context.Background(), tenantID), entitlement.ErrPremiumRequired)
	})

	t.Run("paid subscription passes premium and plan gates", func(t *testing.T) {
		t.Parallel()

		svc := gateTestService(t)
		gate := entitlement.NewGate(svc, nil)
		tenantID := uuid.New()

		_, err := svc.ApplyPaymentEvent(context.Background(), &payment.Event{
			Provider:  "razorpay",
			Type:      payment.EventPaymentCaptured,
			OrderID:   "order_1",
			PaymentID: "pay_1",
			TenantID:  tenantID,
			PlanID:    "premium-monthly",
		})
		require.NoError(t, err)

		require.NoError(t, gate.RequireActive(context.Background(), tenantID))
		require.NoError(t, gate.RequirePremium(context.Background(), tenantID))
		require.NoError(t, gate.RequirePlan(context.Background(), tenantID, "premium-monthly"))
		require.ErrorIs(t, gate.RequirePlan(context.Background(), tenantID, "starter-annual"), entitlement.ErrPlanRequired)
	})

	t.Run("lapsed subscription is not active", func(t *testing.T) {
		t.Parallel()

		svc := gateTestService(t)
		gate := entitlement.NewGate(svc, nil,
			entitlement.WithGateClock(func() time.Time { return time.Now().UTC().AddDate(0, 0, 30) }),
		)
		tenantID := uuid.New()

		_, err := svc.CreateFreeTrial(context.Background(), tenantID)
		require.NoError(t, err)

		require.ErrorIs(t, gate.RequireActive(context.Background(), tenantID), entitlement.ErrNoActiveSubscription)
	})
}

func TestGateCheckLimit(t *testing.T) {
	t.Parallel()

	newCountedGate := func(t *testing.T, count *atomic.Int64) (subscription.Service, *entitlement.Gate) {
		t.Helper()

		svc := gateTestService(t)
		counters := entitlement.NewRegistry()
		counters.Register(entitlement.ResourceEmployees, func(_ context.Context, _ uuid.UUID) (int64, error) {
			return count.Load(), nil
		})
		return svc, entitlement.NewGate(svc, counters)
	}

	t.Run("trialing tenant is denied at the ceiling and allowed below it", func(t *testing.T) {
		t.Parallel()

		var count atomic.Int64
		svc, gate := newCountedGate(t, &count)
		tenantID := uuid.New()

		_, err := svc.CreateFreeTrial(context.Background(), tenantID)
		require.NoError(t, err)

		// Employees 1 through 5 all pass.
		for range 5 {
			decision, err := gate.CheckLimit(context.Background(), tenantID, entitlement.ResourceEmployees)
			require.NoError(t, err)
			require.True(t, decision.Allowed)
			count.Add(1)
		}

		// The sixth create is denied citing 5 of 5.
		decision, err := gate.CheckLimit(context.Background(), tenantID, entitlement.ResourceEmployees)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(5), decision.Used)
		assert.Equal(t, int64(5), decision.Limit)
		assert.Equal(t, "trial limit reached for employees: 5 of 5 used", decision.Message())

		require.ErrorIs(t, gate.CheckCreate(context.Background(), tenantID, entitlement.ResourceEmployees),
			entitlement.ErrTrialLimitReached)

		// Upgrading to a paid plan lifts the ceiling.
		_, err = svc.ApplyPaymentEvent(context.Background(), &payment.Event{
			Provider:  "razorpay",
			Type:      payment.EventPaymentCaptured,
			OrderID:   "order_1",
			PaymentID: "pay_1",
			TenantID:  tenantID,
			PlanID:    "premium-monthly",
		})
		require.NoError(t, err)

		decision, err = gate.CheckLimit(context.Background(), tenantID, entitlement.ResourceEmployees)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("no subscription fails open", func(t *testing.T) {
		t.Parallel()

		var count atomic.Int64
		count.Store(1000)
		_, gate := newCountedGate(t, &count)

		decision, err := gate.CheckLimit(context.Background(), uuid.New(), entitlement.ResourceEmployees)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("non-trialing tenant is never counted", func(t *testing.T) {
		t.Parallel()

		svc := gateTestService(t)
		counters := entitlement.NewRegistry()
		counters.Register(entitlement.ResourceEmployees, func(_ context.Context, _ uuid.UUID) (int64, error) {
			t.Error("counter must not run for non-trialing tenants")
			return 0, nil
		})
		gate := entitlement.NewGate(svc, counters)
		tenantID := uuid.New()

		_, err := svc.ApplyPaymentEvent(context.Background(), &payment.Event{
			Provider:  "razorpay",
			Type:      payment.EventPaymentCaptured,
			OrderID:   "order_1",
			PaymentID: "pay_1",
			TenantID:  tenantID,
			PlanID:    "premium-monthly",
		})
		require.NoError(t, err)

		decision, err := gate.CheckLimit(context.Background(), tenantID, entitlement.ResourceEmployees)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("unregistered resource under trial errors", func(t *testing.T) {
		t.Parallel()

		svc := gateTestService(t)
		gate := entitlement.NewGate(svc, nil)
		tenantID := uuid.New()

		_, err := svc.CreateFreeTrial(context.Background(), tenantID)
		require.NoError(t, err)

		_, err = gate.CheckLimit(context.Background(), tenantID, entitlement.ResourceEmployees)
		require.ErrorIs(t, err, entitlement.ErrUnknownResource)
	})

	t.Run("usage reporting", func(t *testing.T) {
		t.Parallel()

		var count atomic.Int64
		count.Store(3)
		_, gate := newCountedGate(t, &count)

		used, limit, err := gate.Usage(context.Background(), uuid.New(), entitlement.ResourceEmployees)
		require.NoError(t, err)
		assert.Equal(t, int64(3), used)
		assert.Equal(t, int64(5), limit)
	})
}
