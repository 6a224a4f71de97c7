// Package ratelimit implements fixed-window admission control backed by
// the shared counter store. Counting is delegated to the store's atomic
// increment-with-expiry, so concurrent requests from one client never
// lose updates and the window resets by key expiry.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
)

// Limiter enforces one ceiling/window pair for one tier ("global" or
// "sensitive"). Both tiers fail closed: when the counter store cannot be
// reached, Allow returns an error and the caller must reject the request.
type Limiter struct {
	store  cache.Store
	tier   string
	max    int64
	window time.Duration
}

// New creates a Limiter for the given tier.
func New(store cache.Store, tier string, max int64, window time.Duration) *Limiter {
	return &Limiter{store: store, tier: tier, max: max, window: window}
}

// Tier returns the limiter's tier name, used for metrics labels.
func (l *Limiter) Tier() string { return l.tier }

// Allow counts one request from ip and reports whether it is within the
// ceiling. The first request of a window arms the window expiry. An error
// means the store was unreachable; callers must treat that as a denial.
func (l *Limiter) Allow(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", l.tier, ip)

	count, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return false, fmt.Errorf("rate limiter store: %w", err)
	}

	return count <= l.max, nil
}
