package tenant_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/tenant"
)

type fakeAccountStore struct {
	accounts map[uuid.UUID]*tenant.Account
	calls    int
}

func (s *fakeAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Account, error) {
	s.calls++
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, tenant.ErrAccountNotFound
}

type fakeWorkerStore struct {
	byAccount map[uuid.UUID]*tenant.Worker
	byEmail   map[string]*tenant.Worker
}

func (s *fakeWorkerStore) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*tenant.Worker, error) {
	if w, ok := s.byAccount[accountID]; ok {
		return w, nil
	}
	return nil, tenant.ErrWorkerNotFound
}

func (s *fakeWorkerStore) GetByEmail(ctx context.Context, email string) (*tenant.Worker, error) {
	if w, ok := s.byEmail[strings.ToLower(email)]; ok && w.IsUsable() {
		return w, nil
	}
	return nil, tenant.ErrWorkerNotFound
}

func TestResolverResolveTenantID(t *testing.T) {
	t.Parallel()

	adminID := uuid.New()
	employeeID := uuid.New()

	t.Run("admin resolves to itself", func(t *testing.T) {
		t.Parallel()

		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			adminID: {ID: adminID, Role: tenant.RoleAdmin, Active: true},
		}}
		r := tenant.NewResolver(accounts, &fakeWorkerStore{}, tenant.WithCache(tenant.NewNoOpCache()))

		got, err := r.ResolveTenantID(context.Background(), adminID)
		require.NoError(t, err)
		assert.Equal(t, adminID, got)
	})

	t.Run("employee resolves to creator via account link", func(t *testing.T) {
		t.Parallel()

		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			employeeID: {ID: employeeID, Email: "worker@safein.app", Role: tenant.RoleEmployee, Active: true},
		}}
		workers := &fakeWorkerStore{byAccount: map[uuid.UUID]*tenant.Worker{
			employeeID: {ID: uuid.New(), AccountID: employeeID, CreatorID: adminID, Active: true},
		}}
		r := tenant.NewResolver(accounts, workers, tenant.WithCache(tenant.NewNoOpCache()))

		got, err := r.ResolveTenantID(context.Background(), employeeID)
		require.NoError(t, err)
		assert.Equal(t, adminID, got, "scoping must use the creator id, never the worker's own id")
	})

	t.Run("falls back to case-insensitive email match", func(t *testing.T) {
		t.Parallel()

		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			employeeID: {ID: employeeID, Email: "Worker@SafeIn.App", Role: tenant.RoleEmployee, Active: true},
		}}
		workers := &fakeWorkerStore{byEmail: map[string]*tenant.Worker{
			"worker@safein.app": {ID: uuid.New(), CreatorID: adminID, Email: "worker@safein.app", Active: true},
		}}
		r := tenant.NewResolver(accounts, workers, tenant.WithCache(tenant.NewNoOpCache()))

		got, err := r.ResolveTenantID(context.Background(), employeeID)
		require.NoError(t, err)
		assert.Equal(t, adminID, got)
	})

	t.Run("linked but revoked worker does not fall back to email", func(t *testing.T) {
		t.Parallel()

		deleted := time.Now()
		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			employeeID: {ID: employeeID, Email: "worker@safein.app", Role: tenant.RoleEmployee, Active: true},
		}}
		workers := &fakeWorkerStore{
			byAccount: map[uuid.UUID]*tenant.Worker{
				employeeID: {ID: uuid.New(), AccountID: employeeID, CreatorID: adminID, Active: true, DeletedAt: &deleted},
			},
			byEmail: map[string]*tenant.Worker{
				"worker@safein.app": {ID: uuid.New(), CreatorID: adminID, Email: "worker@safein.app", Active: true},
			},
		}
		r := tenant.NewResolver(accounts, workers, tenant.WithCache(tenant.NewNoOpCache()))

		_, err := r.ResolveTenantID(context.Background(), employeeID)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("inactive worker record resolves to not found", func(t *testing.T) {
		t.Parallel()

		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			employeeID: {ID: employeeID, Email: "worker@safein.app", Role: tenant.RoleEmployee, Active: true},
		}}
		workers := &fakeWorkerStore{byAccount: map[uuid.UUID]*tenant.Worker{
			employeeID: {ID: uuid.New(), AccountID: employeeID, CreatorID: adminID, Active: false},
		}}
		r := tenant.NewResolver(accounts, workers, tenant.WithCache(tenant.NewNoOpCache()))

		_, err := r.ResolveTenantID(context.Background(), employeeID)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("no matching worker", func(t *testing.T) {
		t.Parallel()

		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			employeeID: {ID: employeeID, Email: "worker@safein.app", Role: tenant.RoleEmployee, Active: true},
		}}
		r := tenant.NewResolver(accounts, &fakeWorkerStore{}, tenant.WithCache(tenant.NewNoOpCache()))

		_, err := r.ResolveTenantID(context.Background(), employeeID)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()

		r := tenant.NewResolver(&fakeAccountStore{}, &fakeWorkerStore{}, tenant.WithCache(tenant.NewNoOpCache()))

		_, err := r.ResolveTenantID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("inactive account", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			id: {ID: id, Role: tenant.RoleAdmin, Active: false},
		}}
		r := tenant.NewResolver(accounts, &fakeWorkerStore{}, tenant.WithCache(tenant.NewNoOpCache()))

		_, err := r.ResolveTenantID(context.Background(), id)
		assert.ErrorIs(t, err, tenant.ErrInactiveAccount)
	})

	t.Run("cache short-circuits store lookups", func(t *testing.T) {
		t.Parallel()

		accounts := &fakeAccountStore{accounts: map[uuid.UUID]*tenant.Account{
			adminID: {ID: adminID, Role: tenant.RoleAdmin, Active: true},
		}}
		cache := tenant.NewInMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		r := tenant.NewResolver(accounts, &fakeWorkerStore{}, tenant.WithCache(cache), tenant.WithCacheTTL(time.Minute))

		_, err := r.ResolveTenantID(context.Background(), adminID)
		require.NoError(t, err)
		_, err = r.ResolveTenantID(context.Background(), adminID)
		require.NoError(t, err)

		assert.Equal(t, 1, accounts.calls)
	})
}
