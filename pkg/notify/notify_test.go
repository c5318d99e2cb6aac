package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

func validEmailConfig() EmailConfig {
	return EmailConfig{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "billing@safein.example",
		SupportEmail:         "support@safein.example",
	}
}

func staticRecipient(email string) RecipientResolver {
	return func(_ context.Context, _ uuid.UUID) (string, error) {
		return email, nil
	}
}

type fakeSender struct {
	sent []postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakeSender) SendEmail(_ context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

func TestNewEmailNotifier(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		n, err := NewEmailNotifier(validEmailConfig(), staticRecipient("admin@tenant.example"))
		require.NoError(t, err)
		require.NotNil(t, n)
	})

	t.Run("missing tokens", func(t *testing.T) {
		t.Parallel()

		cfg := validEmailConfig()
		cfg.PostmarkServerToken = ""
		_, err := NewEmailNotifier(cfg, staticRecipient("a@b.co"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid sender email", func(t *testing.T) {
		t.Parallel()

		cfg := validEmailConfig()
		cfg.SenderEmail = "not-an-email"
		_, err := NewEmailNotifier(cfg, staticRecipient("a@b.co"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("nil resolver", func(t *testing.T) {
		t.Parallel()

		_, err := NewEmailNotifier(validEmailConfig(), nil)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestEmailNotifierSend(t *testing.T) {
	t.Parallel()

	newNotifier := func(t *testing.T, sender postmarkSender, recipient RecipientResolver) *EmailNotifier {
		t.Helper()
		n, err := NewEmailNotifier(validEmailConfig(), recipient)
		require.NoError(t, err)
		n.sender = sender
		return n
	}

	sub := &subscription.Subscription{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		PlanID:   "premium-monthly",
		Status:   subscription.StatusActive,
	}

	t.Run("activation email", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		n := newNotifier(t, sender, staticRecipient("admin@tenant.example"))

		require.NoError(t, n.SubscriptionActivated(context.Background(), sub))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "admin@tenant.example", sender.sent[0].To)
		assert.Equal(t, "billing@safein.example", sender.sent[0].From)
		assert.Equal(t, "subscription-activated", sender.sent[0].Tag)
		assert.Contains(t, sender.sent[0].HTMLBody, "premium-monthly")
	})

	t.Run("cancellation email", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		n := newNotifier(t, sender, staticRecipient("admin@tenant.example"))

		require.NoError(t, n.SubscriptionCanceled(context.Background(), sub))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "subscription-canceled", sender.sent[0].Tag)
	})

	t.Run("unresolvable recipient", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		n := newNotifier(t, sender, func(_ context.Context, _ uuid.UUID) (string, error) {
			return "", errors.New("no account")
		})

		err := n.SubscriptionActivated(context.Background(), sub)
		require.ErrorIs(t, err, ErrNoRecipient)
		assert.Empty(t, sender.sent)
	})

	t.Run("postmark api error", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{resp: postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}}
		n := newNotifier(t, sender, staticRecipient("admin@tenant.example"))

		err := n.SubscriptionActivated(context.Background(), sub)
		require.ErrorIs(t, err, ErrFailedToSend)
	})
}

func TestSlogNotifier(t *testing.T) {
	t.Parallel()

	n := NewSlogNotifier(slog.Default())
	sub := &subscription.Subscription{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		PlanID:   "free-trial",
		Status:   subscription.StatusTrialing,
	}

	require.NoError(t, n.SubscriptionActivated(context.Background(), sub))
	require.NoError(t, n.SubscriptionCanceled(context.Background(), sub))
}
