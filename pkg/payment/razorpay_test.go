package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
)

func newRazorpay(t *testing.T) *payment.RazorpayProvider {
	t.Helper()
	p, err := payment.NewRazorpayProvider(payment.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "rzp_test_secret",
		WebhookSecret: "whsec_test",
	})
	require.NoError(t, err)
	return p
}

func signRazorpay(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedPayload(tenantID uuid.UUID, wrapped bool) []byte {
	entity := fmt.Sprintf(`{
		"id": "pay_N1",
		"order_id": "order_O1",
		"status": "captured",
		"notes": {"tenant_id": %q, "plan_id": "premium_monthly"}
	}`, tenantID)
	if wrapped {
		entity = fmt.Sprintf(`{"entity": %s}`, entity)
	}
	return fmt.Appendf(nil, `{
		"entity": "event",
		"event": "payment.captured",
		"created_at": 1767000000,
		"payload": {"payment": %s}
	}`, entity)
}

func TestNewRazorpayProvider(t *testing.T) {
	t.Parallel()

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := payment.NewRazorpayProvider(payment.RazorpayConfig{WebhookSecret: "x"})
		assert.ErrorIs(t, err, payment.ErrMissingCredentials)

		_, err = payment.NewRazorpayProvider(payment.RazorpayConfig{KeyID: "k", KeySecret: "s"})
		assert.ErrorIs(t, err, payment.ErrMissingCredentials)
	})
}

func TestRazorpayVerifySignature(t *testing.T) {
	t.Parallel()

	p := newRazorpay(t)
	body := capturedPayload(uuid.New(), true)

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, p.VerifySignature(body, signRazorpay(body, "whsec_test")))
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		err := p.VerifySignature(body, signRazorpay(body, "wrong"))
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()
		err := p.VerifySignature(body, "")
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()
		sig := signRazorpay(body, "whsec_test")
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = 'X'
		err := p.VerifySignature(tampered, sig)
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})
}

func TestRazorpayNormalize(t *testing.T) {
	t.Parallel()

	p := newRazorpay(t)
	tenantID := uuid.New()

	t.Run("payment captured with entity wrapper", func(t *testing.T) {
		t.Parallel()

		ev, err := p.Normalize(context.Background(), capturedPayload(tenantID, true))
		require.NoError(t, err)

		assert.Equal(t, payment.EventPaymentCaptured, ev.Type)
		assert.Equal(t, "order_O1", ev.OrderID)
		assert.Equal(t, "pay_N1", ev.PaymentID)
		assert.Equal(t, tenantID, ev.TenantID)
		assert.Equal(t, "premium_monthly", ev.PlanID)
		assert.Equal(t, "razorpay:order_O1:pay_N1", ev.IdempotencyKey())
		assert.NotEmpty(t, ev.PayloadDigest)
	})

	t.Run("payment captured with direct entity", func(t *testing.T) {
		t.Parallel()

		ev, err := p.Normalize(context.Background(), capturedPayload(tenantID, false))
		require.NoError(t, err)
		assert.Equal(t, "order_O1", ev.OrderID)
		assert.Equal(t, tenantID, ev.TenantID)
	})

	t.Run("order paid falls back to order notes", func(t *testing.T) {
		t.Parallel()

		body := fmt.Appendf(nil, `{
			"event": "order.paid",
			"created_at": 1767000000,
			"payload": {
				"payment": {"entity": {"id": "pay_N2", "order_id": "order_O2", "notes": {}}},
				"order": {"entity": {"id": "order_O2", "status": "paid", "notes": {"tenant_id": %q, "plan_id": "premium_monthly"}}}
			}
		}`, tenantID)

		ev, err := p.Normalize(context.Background(), body)
		require.NoError(t, err)
		assert.Equal(t, payment.EventOrderPaid, ev.Type)
		assert.Equal(t, "order_O2", ev.OrderID)
		assert.Equal(t, "pay_N2", ev.PaymentID)
		assert.Equal(t, tenantID, ev.TenantID)
	})

	t.Run("payment failed", func(t *testing.T) {
		t.Parallel()

		body := fmt.Appendf(nil, `{
			"event": "payment.failed",
			"payload": {"payment": {"entity": {"id": "pay_N3", "order_id": "order_O3", "notes": {"tenant_id": %q, "plan_id": "premium_monthly"}}}}
		}`, tenantID)

		ev, err := p.Normalize(context.Background(), body)
		require.NoError(t, err)
		assert.Equal(t, payment.EventPaymentFailed, ev.Type)
	})

	t.Run("missing notes is unattributable", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{
			"event": "payment.captured",
			"payload": {"payment": {"entity": {"id": "pay_N4", "order_id": "order_O4", "notes": {}}}}
		}`)

		_, err := p.Normalize(context.Background(), body)
		assert.ErrorIs(t, err, payment.ErrUnattributableEvent)
	})

	t.Run("unsupported event", func(t *testing.T) {
		t.Parallel()

		_, err := p.Normalize(context.Background(), []byte(`{"event": "refund.created", "payload": {}}`))
		assert.ErrorIs(t, err, payment.ErrUnsupportedEvent)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		_, err := p.Normalize(context.Background(), []byte(`{not json`))
		assert.ErrorIs(t, err, payment.ErrMalformedPayload)
	})

	t.Run("replay produces identical key and digest", func(t *testing.T) {
		t.Parallel()

		body := capturedPayload(tenantID, true)
		first, err := p.Normalize(context.Background(), body)
		require.NoError(t, err)
		second, err := p.Normalize(context.Background(), body)
		require.NoError(t, err)

		assert.Equal(t, first.IdempotencyKey(), second.IdempotencyKey())
		assert.Equal(t, first.PayloadDigest, second.PayloadDigest)
	})
}
