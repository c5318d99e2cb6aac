package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

// maxWebhookBody bounds webhook payload reads. Provider events are small;
// anything larger is not a payment notification.
const maxWebhookBody = 1 << 20

// signatureHeaders maps provider names to the header carrying the webhook
// signature.
var signatureHeaders = map[string]string{
	"razorpay": "X-Razorpay-Signature",
	"paddle":   "Paddle-Signature",
}

// handleWebhook builds the ingress handler for one provider. The response
// policy follows "ack unless provably invalid": a bad signature is 401, an
// unparseable body 400, an unattributable-but-valid event is logged and
// acknowledged with 200 so the provider stops retrying it, and only
// post-verification store failures return 5xx to trigger redelivery.
func (m *Module) handleWebhook(providerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		provider, ok := m.svc.Provider(providerName)
		if !ok {
			m.logger.ErrorContext(ctx, "webhook for unregistered provider", slog.String("provider", providerName))
			respondError(w, http.StatusNotFound, "unknown provider")
			return
		}

		// Signature verification needs the raw bytes, not a re-serialized
		// copy.
		rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		header := signatureHeaders[providerName]
		if header == "" {
			header = "X-Webhook-Signature"
		}
		if err := provider.VerifySignature(rawBody, r.Header.Get(header)); err != nil {
			m.logger.WarnContext(ctx, "webhook signature rejected",
				slog.String("provider", providerName),
				slog.Any("error", err),
			)
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		ev, err := provider.Normalize(ctx, rawBody)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrUnsupportedEvent):
				// Not an event this engine consumes; acknowledge so the
				// provider does not retry it forever.
				m.logger.InfoContext(ctx, "webhook event ignored",
					slog.String("provider", providerName),
					slog.Any("error", err),
				)
				respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			case errors.Is(err, payment.ErrUnattributableEvent):
				m.logger.WarnContext(ctx, "webhook event dropped: no tenant attribution",
					slog.String("provider", providerName),
					slog.Any("error", err),
				)
				respondJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
			default:
				respondError(w, http.StatusBadRequest, "malformed payload")
			}
			return
		}

		sub, err := m.svc.ApplyPaymentEvent(ctx, ev)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrUnattributableEvent):
				m.logger.WarnContext(ctx, "webhook event dropped: no tenant attribution",
					slog.String("provider", providerName),
					slog.String("event_key", ev.IdempotencyKey()),
				)
				respondJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
			case errors.Is(err, subscription.ErrEventInFlight):
				// Another delivery is mid-orchestration; let the provider
				// redeliver once it finishes.
				respondError(w, http.StatusConflict, "event is being processed")
			default:
				// The event key was released; redelivery will retry.
				m.logger.ErrorContext(ctx, "webhook orchestration failed",
					slog.String("provider", providerName),
					slog.String("event_key", ev.IdempotencyKey()),
					slog.Any("error", err),
				)
				respondError(w, http.StatusInternalServerError, "failed to process event")
			}
			return
		}

		resp := map[string]string{"status": "ok"}
		if sub != nil {
			resp["subscription_id"] = sub.ID.String()
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
