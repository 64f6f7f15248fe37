package cache

import (
	"context"
	"time"
)

// Cache defines the unified interface for key-value store operations.
// This abstraction allows switching between different backends
// (Redis, local memory) without changing business logic.
type Cache interface {
	// Get retrieves the value for the given key.
	// Returns an empty string when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL
	// If ttl is 0, the key will not expire
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys and returns the number of keys removed
	Del(ctx context.Context, keys ...string) (int64, error)

	// Exists checks if one or more keys exist
	// Returns the number of keys that exist
	Exists(ctx context.Context, keys ...string) (int64, error)

	// Expire sets a timeout on a key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining time to live of a key
	// Returns -1 if the key exists but has no expiration
	// Returns -2 if the key does not exist
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Scan returns all keys matching the glob pattern
	Scan(ctx context.Context, pattern string) ([]string, error)

	// Ping verifies the store connection is alive
	Ping(ctx context.Context) error

	// Close closes the store connection
	Close() error
}

// Sentinel TTL values, matching the TTL command's -1/-2 replies.
const (
	TTLNoExpiry   = time.Duration(-1)
	TTLKeyMissing = time.Duration(-2)
)
