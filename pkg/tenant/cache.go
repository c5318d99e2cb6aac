package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cache stores resolved account-to-tenant mappings. Ownership links change
// rarely (a worker is re-assigned or deactivated), so short TTLs are safe.
type Cache interface {
	// Get retrieves a resolved tenant id by account id.
	Get(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool)

	// Set stores a resolved tenant id with the given TTL.
	Set(ctx context.Context, accountID, tenantID uuid.UUID, ttl time.Duration)

	// Delete removes a mapping, e.g. after a worker is deactivated.
	Delete(ctx context.Context, accountID uuid.UUID)

	// Close releases any resources held by the cache.
	Close() error
}

type cacheItem struct {
	tenantID  uuid.UUID
	expiresAt time.Time
}

// DefaultCacheSize is the default maximum number of cached mappings.
const DefaultCacheSize = 1000

// inMemoryCache is the default in-memory cache with TTL expiry and LRU
// eviction.
type inMemoryCache struct {
	mu      sync.Mutex
	items   map[uuid.UUID]cacheItem
	lru     []uuid.UUID
	maxSize int
	stop    chan struct{}
	done    chan struct{}
	closed  bool
}

// NewInMemoryCache creates an in-memory cache with automatic cleanup.
func NewInMemoryCache() Cache {
	return NewInMemoryCacheWithSize(DefaultCacheSize)
}

// NewInMemoryCacheWithSize creates an in-memory cache with a size limit.
func NewInMemoryCacheWithSize(maxSize int) Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	c := &inMemoryCache{
		items:   make(map[uuid.UUID]cacheItem),
		lru:     make([]uuid.UUID, 0, maxSize),
		maxSize: maxSize,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go c.cleanup()

	return c
}

func (c *inMemoryCache) Get(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[accountID]
	if !exists {
		return uuid.Nil, false
	}

	if time.Now().After(item.expiresAt) {
		delete(c.items, accountID)
		c.removeLRU(accountID)
		return uuid.Nil, false
	}

	c.updateLRU(accountID)

	return item.tenantID, true
}

func (c *inMemoryCache) Set(ctx context.Context, accountID, tenantID uuid.UUID, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[accountID]; !exists && len(c.items) >= c.maxSize {
		if len(c.lru) > 0 {
			evict := c.lru[0]
			delete(c.items, evict)
			c.lru = c.lru[1:]
		}
	}

	c.items[accountID] = cacheItem{
		tenantID:  tenantID,
		expiresAt: time.Now().Add(ttl),
	}

	c.updateLRU(accountID)
}

func (c *inMemoryCache) Delete(ctx context.Context, accountID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, accountID)
	c.removeLRU(accountID)
}

func (c *inMemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *inMemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			c.removeLRU(key)
		}
	}
}

func (c *inMemoryCache) updateLRU(key uuid.UUID) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
	c.lru = append(c.lru, key)
}

func (c *inMemoryCache) removeLRU(key uuid.UUID) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			return
		}
	}
}

func (c *inMemoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return nil
}

// noOpCache disables caching; every resolution hits the stores.
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache.
func NewNoOpCache() Cache {
	return &noOpCache{}
}

func (noOpCache) Get(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool) {
	return uuid.Nil, false
}

func (noOpCache) Set(ctx context.Context, accountID, tenantID uuid.UUID, ttl time.Duration) {}

func (noOpCache) Delete(ctx context.Context, accountID uuid.UUID) {}

func (noOpCache) Close() error { return nil }
