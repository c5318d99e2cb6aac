package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/google/uuid"
)

// ProviderPaddle is the stable name of the gateway-style provider.
const ProviderPaddle = "paddle"

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle. Paddle is gateway-style:
// checkout happens on a hosted page and the transaction id doubles as the
// order reference in webhook payloads.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: paddle API key", ErrMissingCredentials)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: paddle webhook secret", ErrMissingCredentials)
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		config:   cfg,
	}, nil
}

func (p *PaddleProvider) Name() string { return ProviderPaddle }

// VerifySignature validates the Paddle-Signature header against the raw
// body. The SDK verifier works on http.Request, so one is reconstructed.
func (p *PaddleProvider) VerifySignature(rawBody []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	req, err := http.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(rawBody))
	if err != nil {
		return fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signatureHeader)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return ErrInvalidSignature
	}
	return nil
}

type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Normalize parses a verified Paddle webhook body into an Event.
func (p *PaddleProvider) Normalize(ctx context.Context, rawBody []byte) (*Event, error) {
	var env paddleEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	eventType, ok := mapPaddleEvent(env.EventType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, env.EventType)
	}

	data, err := unwrapEntity(env.Data)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: missing data object", ErrMalformedPayload)
	}

	ev := &Event{
		Provider:      ProviderPaddle,
		Type:          eventType,
		ProviderEvent: env.EventType,
		OrderID:       stringField(data, "id"),
		PaymentID:     paddlePaymentID(data),
		PayloadDigest: Digest(rawBody),
		OccurredAt:    time.Now().UTC(),
	}
	if ts, err := time.Parse(time.RFC3339, env.OccurredAt); err == nil {
		ev.OccurredAt = ts.UTC()
	}

	if custom, ok := data["custom_data"].(map[string]any); ok {
		if raw := stringField(custom, "tenant_id"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ev.TenantID = id
			}
		}
		ev.PlanID = stringField(custom, "plan_id")
	}

	if ev.OrderID == "" {
		return nil, fmt.Errorf("%w: missing transaction id", ErrMalformedPayload)
	}
	if !ev.Attributed() {
		return ev, ErrUnattributableEvent
	}

	return ev, nil
}

// CreateCheckout creates a hosted checkout transaction in Paddle with the
// tenant/plan metadata in custom_data.
func (p *PaddleProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if req.TenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant id is required", ErrCheckoutFailed)
	}
	if req.Plan.ProviderPriceID == "" {
		return nil, fmt.Errorf("%w: plan %s has no provider price id", ErrCheckoutFailed, req.Plan.ID)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.Plan.ProviderPriceID,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"tenant_id": req.TenantID.String(),
			"plan_id":   req.Plan.ID,
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	var checkoutURL string
	if tx.Checkout != nil && tx.Checkout.URL != nil {
		checkoutURL = *tx.Checkout.URL
	}

	return &Checkout{
		Provider:  ProviderPaddle,
		OrderID:   tx.ID,
		URL:       checkoutURL,
		Amount:    req.Plan.Price.Amount,
		Currency:  req.Plan.Price.Currency,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func mapPaddleEvent(name string) (EventType, bool) {
	switch name {
	case "transaction.completed":
		return EventOrderPaid, true
	case "transaction.paid", "transaction.payment_succeeded":
		return EventPaymentCaptured, true
	case "transaction.payment_failed":
		return EventPaymentFailed, true
	default:
		return "", false
	}
}

// paddlePaymentID extracts a stable per-payment identifier. Transactions
// carry payment attempts; the first attempt id is deterministic across
// redeliveries of the same event. Falls back to the transaction id so the
// idempotency key is always complete.
func paddlePaymentID(data map[string]any) string {
	if id := stringField(data, "payment_id"); id != "" {
		return id
	}
	if payments, ok := data["payments"].([]any); ok && len(payments) > 0 {
		if first, ok := payments[0].(map[string]any); ok {
			if id := stringField(first, "payment_attempt_id"); id != "" {
				return id
			}
		}
	}
	return stringField(data, "id")
}
