package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resolver maps a caller account to the tenant that owns its data. The
// resolved id is authoritative: every tenant-scoped query and every billing
// decision is keyed by it, never by the raw caller id.
type Resolver struct {
	accounts AccountStore
	workers  WorkerStore
	cache    Cache
	cacheTTL time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache sets a custom cache implementation.
func WithCache(cache Cache) ResolverOption {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithCacheTTL sets how long resolved mappings stay cached.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// NewResolver creates a Resolver. Panics if either store is nil to fail fast
// during initialization.
func NewResolver(accounts AccountStore, workers WorkerStore, opts ...ResolverOption) *Resolver {
	if accounts == nil {
		panic("tenant: AccountStore is required")
	}
	if workers == nil {
		panic("tenant: WorkerStore is required")
	}

	r := &Resolver{
		accounts: accounts,
		workers:  workers,
		cache:    NewInMemoryCache(),
		cacheTTL: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveTenantID determines the canonical tenant id for the given account.
//
// Admin accounts own their tenant, so they resolve to themselves. Any other
// account must match a usable delegated-worker record - first by the explicit
// account link, then by case-insensitive active-only email match - and
// resolves to that worker's creator. Accounts matching neither resolve to
// ErrTenantNotFound.
func (r *Resolver) ResolveTenantID(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error) {
	if accountID == uuid.Nil {
		return uuid.Nil, ErrAccountNotFound
	}

	if id, ok := r.cache.Get(ctx, accountID); ok {
		return id, nil
	}

	account, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return uuid.Nil, ErrTenantNotFound
		}
		return uuid.Nil, err
	}
	if !account.Active {
		return uuid.Nil, ErrInactiveAccount
	}

	if account.Role == RoleAdmin {
		r.cache.Set(ctx, accountID, account.ID, r.cacheTTL)
		return account.ID, nil
	}

	worker, err := r.lookupWorker(ctx, account)
	if err != nil {
		return uuid.Nil, err
	}

	r.cache.Set(ctx, accountID, worker.CreatorID, r.cacheTTL)
	return worker.CreatorID, nil
}

// Invalidate drops any cached mapping for the account. Call after worker
// re-assignment or deactivation.
func (r *Resolver) Invalidate(ctx context.Context, accountID uuid.UUID) {
	r.cache.Delete(ctx, accountID)
}

// Close releases the resolver's cache resources.
func (r *Resolver) Close() error {
	return r.cache.Close()
}

func (r *Resolver) lookupWorker(ctx context.Context, account *Account) (*Worker, error) {
	worker, err := r.workers.GetByAccountID(ctx, account.ID)
	switch {
	case err == nil:
		// The explicit link is authoritative; an unusable linked record means
		// the delegation was revoked, and the email fallback must not
		// resurrect it.
		if !worker.IsUsable() {
			return nil, ErrTenantNotFound
		}
		return worker, nil
	case errors.Is(err, ErrWorkerNotFound):
		// fall through to email match
	default:
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(account.Email))
	if email == "" {
		return nil, ErrTenantNotFound
	}

	worker, err = r.workers.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !worker.IsUsable() {
			return nil, ErrTenantNotFound
		}
		return worker, nil
	case errors.Is(err, ErrWorkerNotFound):
		return nil, ErrTenantNotFound
	default:
		return nil, err
	}
}
