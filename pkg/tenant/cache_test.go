package tenant_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/tenant"
)

func TestInMemoryCache(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		account, owner := uuid.New(), uuid.New()
		cache.Set(context.Background(), account, owner, time.Minute)

		got, ok := cache.Get(context.Background(), account)
		require.True(t, ok)
		assert.Equal(t, owner, got)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		account := uuid.New()
		cache.Set(context.Background(), account, uuid.New(), time.Millisecond)
		time.Sleep(5 * time.Millisecond)

		_, ok := cache.Get(context.Background(), account)
		assert.False(t, ok)
	})

	t.Run("delete removes mapping", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		account := uuid.New()
		cache.Set(context.Background(), account, uuid.New(), time.Minute)
		cache.Delete(context.Background(), account)

		_, ok := cache.Get(context.Background(), account)
		assert.False(t, ok)
	})

	t.Run("evicts least recently used at capacity", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCacheWithSize(2)
		t.Cleanup(func() { _ = cache.Close() })

		ctx := context.Background()
		first, second, third := uuid.New(), uuid.New(), uuid.New()

		cache.Set(ctx, first, uuid.New(), time.Minute)
		cache.Set(ctx, second, uuid.New(), time.Minute)

		// Touch first so second becomes the eviction candidate.
		_, ok := cache.Get(ctx, first)
		require.True(t, ok)

		cache.Set(ctx, third, uuid.New(), time.Minute)

		_, ok = cache.Get(ctx, second)
		assert.False(t, ok)
		_, ok = cache.Get(ctx, first)
		assert.True(t, ok)
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCacheWithSize(100)
		t.Cleanup(func() { _ = cache.Close() })

		ctx := context.Background()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := uuid.New()
				cache.Set(ctx, id, uuid.New(), time.Minute)
				cache.Get(ctx, id)
				cache.Delete(ctx, id)
			}()
		}
		wg.Wait()
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewInMemoryCache()
		require.NoError(t, cache.Close())
		require.NoError(t, cache.Close())
	})
}
