package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role describes how an account relates to a tenant.
type Role string

const (
	// RoleAdmin accounts own a tenant; their id is the tenant id.
	RoleAdmin Role = "admin"
	// RoleEmployee accounts act on behalf of the tenant that created them.
	RoleEmployee Role = "employee"
)

// Account is the authenticated principal making a request. It is owned by
// the auth collaborator; the resolver only reads it.
type Account struct {
	ID     uuid.UUID
	Email  string
	Role   Role
	Active bool
}

// Worker is a delegated-worker record registered under an owning account.
// Workers are not tenants themselves; every worker maps back to exactly one
// creator account.
type Worker struct {
	ID        uuid.UUID
	AccountID uuid.UUID // explicit link to the worker's login account, may be zero
	CreatorID uuid.UUID // owning admin account - the canonical tenant id
	Email     string
	Active    bool
	DeletedAt *time.Time
}

// IsUsable reports whether the worker record may participate in ownership
// resolution. Soft-deleted and deactivated workers never resolve.
func (w *Worker) IsUsable() bool {
	return w != nil && w.Active && w.DeletedAt == nil
}

// AccountStore loads accounts from the identity collaborator.
type AccountStore interface {
	// GetByID returns the account or ErrAccountNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// WorkerStore loads delegated-worker records.
type WorkerStore interface {
	// GetByAccountID returns the worker explicitly linked to the given login
	// account, or ErrWorkerNotFound.
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Worker, error)

	// GetByEmail returns the active, non-deleted worker matching the email
	// case-insensitively, or ErrWorkerNotFound.
	GetByEmail(ctx context.Context, email string) (*Worker, error)
}
