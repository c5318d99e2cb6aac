package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailConfig configures the Postmark-backed notifier.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"NOTIFY_SENDER_EMAIL,required"`
	SupportEmail         string `env:"NOTIFY_SUPPORT_EMAIL,required"`
}

// postmarkSender is the subset of postmark.Client the notifier uses,
// extracted so tests can fake delivery.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailNotifier implements subscription.Notifier over Postmark
// transactional email. Recipient addresses are resolved per tenant at send
// time.
type EmailNotifier struct {
	sender    postmarkSender
	config    EmailConfig
	recipient RecipientResolver
}

// NewEmailNotifier creates the notifier. The resolver maps a tenant to its
// billing email.
func NewEmailNotifier(cfg EmailConfig, recipient RecipientResolver) (*EmailNotifier, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: RecipientResolver is required", ErrInvalidConfig)
	}

	return &EmailNotifier{
		sender:    postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config:    cfg,
		recipient: recipient,
	}, nil
}

func (n *EmailNotifier) SubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	subject := "Your SafeIn subscription is active"
	body := fmt.Sprintf(
		"<p>Your subscription to the <strong>%s</strong> plan is now active.</p>"+
			"<p>Thank you for choosing SafeIn.</p>",
		sub.PlanID,
	)
	return n.send(ctx, sub, subject, body, "subscription-activated")
}

func (n *EmailNotifier) SubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	subject := "Your SafeIn subscription was canceled"
	body := fmt.Sprintf(
		"<p>Your subscription to the <strong>%s</strong> plan has been canceled.</p>"+
			"<p>If this was a mistake, reply to this email and we will help.</p>",
		sub.PlanID,
	)
	return n.send(ctx, sub, subject, body, "subscription-canceled")
}

func (n *EmailNotifier) send(ctx context.Context, sub *subscription.Subscription, subject, body, tag string) error {
	to, err := n.recipient(ctx, sub.TenantID)
	if err != nil {
		return errors.Join(ErrNoRecipient, err)
	}

	resp, err := n.sender.SendEmail(ctx, postmark.Email{
		From:       n.config.SenderEmail,
		ReplyTo:    n.config.SupportEmail,
		To:         to,
		Subject:    subject,
		Tag:        tag,
		HTMLBody:   body,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
