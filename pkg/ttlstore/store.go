package ttlstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned when a key is absent or its TTL elapsed.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidTTL is returned for non-positive TTLs.
	ErrInvalidTTL = errors.New("ttl must be positive")
)

// Store holds short-lived values with an explicit lifetime. Implementations
// are injected rather than reached through module globals so lifetime and
// testability stay explicit.
type Store interface {
	// Set stores a value under the key for the given TTL, replacing any
	// prior value and lifetime.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value or ErrKeyNotFound once the TTL elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
