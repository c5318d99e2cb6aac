package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/google/uuid"
)

// ProviderRazorpay is the stable name of the ledger-style provider.
const ProviderRazorpay = "razorpay"

// RazorpayConfig holds configuration for the Razorpay billing provider.
type RazorpayConfig struct {
	KeyID         string `env:"RAZORPAY_KEY_ID,required"`
	KeySecret     string `env:"RAZORPAY_KEY_SECRET,required"`
	WebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET,required"`
}

// RazorpayProvider implements Provider for Razorpay. Razorpay is
// ledger-style: checkout creates an order, the client-side flow captures a
// payment against it, and webhooks reference both ids.
type RazorpayProvider struct {
	client *razorpay.Client
	config RazorpayConfig
}

// NewRazorpayProvider creates a new Razorpay billing provider.
func NewRazorpayProvider(cfg RazorpayConfig) (*RazorpayProvider, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("%w: razorpay key id and secret", ErrMissingCredentials)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: razorpay webhook secret", ErrMissingCredentials)
	}

	return &RazorpayProvider{
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		config: cfg,
	}, nil
}

func (p *RazorpayProvider) Name() string { return ProviderRazorpay }

// VerifySignature validates the X-Razorpay-Signature HMAC over the raw body.
func (p *RazorpayProvider) VerifySignature(rawBody []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	if !utils.VerifyWebhookSignature(string(rawBody), signatureHeader, p.config.WebhookSecret) {
		return ErrInvalidSignature
	}
	return nil
}

// razorpayEnvelope is the outer webhook shape. Payload members are either
// the entity object directly or wrapped as {"entity": {...}} depending on
// the event family, so they stay raw here.
type razorpayEnvelope struct {
	Event     string                     `json:"event"`
	CreatedAt int64                      `json:"created_at"`
	Payload   map[string]json.RawMessage `json:"payload"`
}

// Normalize parses a verified Razorpay webhook body into an Event.
func (p *RazorpayProvider) Normalize(ctx context.Context, rawBody []byte) (*Event, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedPayload)
	}

	eventType, ok := mapRazorpayEvent(env.Event)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, env.Event)
	}

	ev := &Event{
		Provider:      ProviderRazorpay,
		Type:          eventType,
		ProviderEvent: env.Event,
		PayloadDigest: Digest(rawBody),
		OccurredAt:    time.Unix(env.CreatedAt, 0).UTC(),
	}
	if env.CreatedAt == 0 {
		ev.OccurredAt = time.Now().UTC()
	}

	paymentEntity, err := unwrapEntity(env.Payload["payment"])
	if err != nil {
		return nil, err
	}
	orderEntity, err := unwrapEntity(env.Payload["order"])
	if err != nil {
		return nil, err
	}

	if paymentEntity != nil {
		ev.PaymentID = stringField(paymentEntity, "id")
		ev.OrderID = stringField(paymentEntity, "order_id")
		fillAttribution(ev, paymentEntity)
	}
	if orderEntity != nil {
		if ev.OrderID == "" {
			ev.OrderID = stringField(orderEntity, "id")
		}
		// Order notes are the fallback when the payment entity carries none.
		if !ev.Attributed() {
			fillAttribution(ev, orderEntity)
		}
	}

	if ev.OrderID == "" && ev.PaymentID == "" {
		return nil, fmt.Errorf("%w: no order or payment entity", ErrMalformedPayload)
	}
	if !ev.Attributed() {
		return ev, ErrUnattributableEvent
	}

	return ev, nil
}

// CreateCheckout creates a Razorpay order carrying tenant/plan notes. The
// returned order id is what the client-side checkout binds its payment to
// and what webhooks echo back.
func (p *RazorpayProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if req.TenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant id is required", ErrCheckoutFailed)
	}
	if !req.Plan.Type.IsPaid() {
		return nil, fmt.Errorf("%w: plan %s is not purchasable", ErrCheckoutFailed, req.Plan.ID)
	}

	order, err := p.client.Order.Create(map[string]interface{}{
		"amount":   req.Plan.Price.Amount,
		"currency": req.Plan.Price.Currency,
		"receipt":  "sub_" + req.TenantID.String()[:8],
		"notes": map[string]interface{}{
			"tenant_id": req.TenantID.String(),
			"plan_id":   req.Plan.ID,
		},
	}, nil)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("%w: no order id returned", ErrCheckoutFailed)
	}

	return &Checkout{
		Provider:  ProviderRazorpay,
		OrderID:   orderID,
		Amount:    req.Plan.Price.Amount,
		Currency:  req.Plan.Price.Currency,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func mapRazorpayEvent(name string) (EventType, bool) {
	switch name {
	case "payment.captured":
		return EventPaymentCaptured, true
	case "payment.failed":
		return EventPaymentFailed, true
	case "order.paid":
		return EventOrderPaid, true
	default:
		return "", false
	}
}

// unwrapEntity tolerates both payload shapes Razorpay emits: the entity
// object directly, or wrapped as {"entity": {...}}.
func unwrapEntity(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}

	if inner, ok := obj["entity"].(map[string]any); ok {
		return inner, nil
	}
	return obj, nil
}

func fillAttribution(ev *Event, entity map[string]any) {
	notes, ok := entity["notes"].(map[string]any)
	if !ok {
		return
	}
	if ev.TenantID == uuid.Nil {
		if raw := stringField(notes, "tenant_id"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ev.TenantID = id
			}
		}
	}
	if ev.PlanID == "" {
		ev.PlanID = stringField(notes, "plan_id")
	}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
