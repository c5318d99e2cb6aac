package payment_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
)

func newPaddle(t *testing.T) *payment.PaddleProvider {
	t.Helper()
	p, err := payment.NewPaddleProvider(payment.PaddleConfig{
		APIKey:        "pdl_test_key",
		WebhookSecret: "pdl_ntf_secret",
		Environment:   "sandbox",
	})
	require.NoError(t, err)
	return p
}

func paddleTransactionPayload(tenantID uuid.UUID, eventType string) []byte {
	return fmt.Appendf(nil, `{
		"event_id": "evt_01",
		"event_type": %q,
		"occurred_at": "2026-01-15T10:00:00Z",
		"data": {
			"id": "txn_01",
			"status": "completed",
			"custom_data": {"tenant_id": %q, "plan_id": "premium_monthly"},
			"payments": [{"payment_attempt_id": "att_01", "status": "captured"}]
		}
	}`, eventType, tenantID)
}

func TestNewPaddleProvider(t *testing.T) {
	t.Parallel()

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := payment.NewPaddleProvider(payment.PaddleConfig{WebhookSecret: "x"})
		assert.ErrorIs(t, err, payment.ErrMissingCredentials)

		_, err = payment.NewPaddleProvider(payment.PaddleConfig{APIKey: "k"})
		assert.ErrorIs(t, err, payment.ErrMissingCredentials)
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		t.Parallel()

		_, err := payment.NewPaddleProvider(payment.PaddleConfig{
			APIKey:        "k",
			WebhookSecret: "s",
			Environment:   "testing",
		})
		assert.Error(t, err)
	})
}

func TestPaddleVerifySignature(t *testing.T) {
	t.Parallel()

	p := newPaddle(t)
	body := paddleTransactionPayload(uuid.New(), "transaction.completed")

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, p.VerifySignature(body, ""), payment.ErrInvalidSignature)
	})

	t.Run("garbage header", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, p.VerifySignature(body, "ts=0;h1=deadbeef"), payment.ErrInvalidSignature)
	})
}

func TestPaddleNormalize(t *testing.T) {
	t.Parallel()

	p := newPaddle(t)
	tenantID := uuid.New()

	t.Run("transaction completed", func(t *testing.T) {
		t.Parallel()

		ev, err := p.Normalize(context.Background(), paddleTransactionPayload(tenantID, "transaction.completed"))
		require.NoError(t, err)

		assert.Equal(t, payment.EventOrderPaid, ev.Type)
		assert.Equal(t, "txn_01", ev.OrderID)
		assert.Equal(t, "att_01", ev.PaymentID)
		assert.Equal(t, tenantID, ev.TenantID)
		assert.Equal(t, "premium_monthly", ev.PlanID)
		assert.Equal(t, "paddle:txn_01:att_01", ev.IdempotencyKey())
	})

	t.Run("payment failed", func(t *testing.T) {
		t.Parallel()

		ev, err := p.Normalize(context.Background(), paddleTransactionPayload(tenantID, "transaction.payment_failed"))
		require.NoError(t, err)
		assert.Equal(t, payment.EventPaymentFailed, ev.Type)
	})

	t.Run("entity wrapper shape", func(t *testing.T) {
		t.Parallel()

		body := fmt.Appendf(nil, `{
			"event_type": "transaction.paid",
			"data": {"entity": {
				"id": "txn_02",
				"custom_data": {"tenant_id": %q, "plan_id": "premium_monthly"}
			}}
		}`, tenantID)

		ev, err := p.Normalize(context.Background(), body)
		require.NoError(t, err)
		assert.Equal(t, payment.EventPaymentCaptured, ev.Type)
		assert.Equal(t, "txn_02", ev.OrderID)
		// No payment attempt listed: transaction id completes the key.
		assert.Equal(t, "txn_02", ev.PaymentID)
	})

	t.Run("missing custom data is unattributable", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"event_type": "transaction.completed",
			"data": {"id": "txn_03"}
		}`)

		_, err := p.Normalize(context.Background(), body)
		assert.ErrorIs(t, err, payment.ErrUnattributableEvent)
	})

	t.Run("unsupported event", func(t *testing.T) {
		t.Parallel()

		_, err := p.Normalize(context.Background(), []byte(`{"event_type": "address.created", "data": {"id": "x"}}`))
		assert.ErrorIs(t, err, payment.ErrUnsupportedEvent)
	})

	t.Run("missing transaction id", func(t *testing.T) {
		t.Parallel()

		_, err := p.Normalize(context.Background(), []byte(`{"event_type": "transaction.completed", "data": {}}`))
		assert.ErrorIs(t, err, payment.ErrMalformedPayload)
	})
}
