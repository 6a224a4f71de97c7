// Package cache defines the shared key/value store boundary used for
// response caching and admission counters. Keys are namespaced by
// resource (post:<id>, posts:<page>:<limit>, search:posts:<query>,
// ratelimit:<tier>:<ip>:<window>); each service owns its own families.
package cache

import (
	"context"
	"time"
)

// Store is the cache-store boundary. All operations are single round
// trips; Increment in particular must be atomic at the store level, it is
// the one place cross-request ordering matters.
type Store interface {
	// Get returns the value for key, or found=false when absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key with the given ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMatching removes every key starting with prefix.
	DeleteMatching(ctx context.Context, prefix string) error

	// Increment atomically increments the counter at key and returns the
	// new count. The first increment in a window sets the key to expire
	// after ttl, so the counter resets at the window boundary.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
