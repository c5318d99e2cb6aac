package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when an account resolves to no tenant:
	// it is neither an owner nor a usable delegated worker.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrAccountNotFound is returned when the account itself does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrWorkerNotFound is returned by worker stores when no record matches.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrInactiveAccount is returned when the caller account is deactivated.
	ErrInactiveAccount = errors.New("account is inactive")

	// ErrNoTenantInContext is returned when no tenant id is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")
)
