// Package ttlstore provides a small key-value store with per-entry
// lifetimes, used for short-lived state such as pending checkout sessions.
// Two implementations are included: an in-process MemoryStore and a
// RedisStore for multi-instance deployments.
package ttlstore
