package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvalidConfig is returned when the notifier configuration is
	// incomplete.
	ErrInvalidConfig = errors.New("invalid notifier configuration")

	// ErrFailedToSend is returned when a notification cannot be delivered.
	ErrFailedToSend = errors.New("failed to send notification")

	// ErrNoRecipient is returned when no billing email can be resolved for
	// a tenant.
	ErrNoRecipient = errors.New("no recipient for tenant")
)

// RecipientResolver returns the billing email for a tenant.
type RecipientResolver func(ctx context.Context, tenantID uuid.UUID) (string, error)
