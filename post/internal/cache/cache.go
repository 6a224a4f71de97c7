// Package cache implements the post service's read-through cache and its
// coarse invalidation scheme. Single posts live under post:<id>; listing
// pages live under posts:<page>:<limit>. Any mutation wipes the affected
// post entry plus every listing page, trading precision for a scheme that
// cannot leave a stale page behind.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/metrics"
)

const (
	// PostTTL bounds staleness of a single cached post.
	PostTTL = time.Hour

	// ListTTL bounds staleness of a cached listing page.
	ListTTL = 5 * time.Minute

	listPrefix = "posts:"
)

// PostKey returns the cache key for one post.
func PostKey(id string) string { return "post:" + id }

// ListKey returns the cache key for one listing page.
func ListKey(page, limit int) string { return fmt.Sprintf("posts:%d:%d", page, limit) }

// Cache wraps the shared store with post-domain keys and TTLs.
type Cache struct {
	store  cache.Store
	logger *slog.Logger
}

func New(store cache.Store) *Cache {
	return &Cache{
		store:  store,
		logger: slog.Default().With(slog.String("component", "cache")),
	}
}

// GetOrCompute returns the cached value for key, or runs compute and
// stores its result under key with ttl. The second return reports whether
// the value came from cache. A store failure degrades to computing
// without caching; reads must not fail because the cache is down.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if found {
		metrics.CacheHits.Inc()
		return value, true, nil
	}

	metrics.CacheMisses.Inc()
	value, err = compute()
	if err != nil {
		return nil, false, err
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return value, false, nil
}

// InvalidatePost removes the post's own entry and every listing page.
// Runs synchronously on the mutation path: once the mutation response is
// written, no reader can be served the old state from cache.
func (c *Cache) InvalidatePost(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, PostKey(id)); err != nil {
		return fmt.Errorf("invalidate post %s: %w", id, err)
	}
	return c.InvalidateListings(ctx)
}

// InvalidateListings removes every cached listing page.
func (c *Cache) InvalidateListings(ctx context.Context) error {
	metrics.CacheInvalidations.Inc()
	if err := c.store.DeleteMatching(ctx, listPrefix); err != nil {
		return fmt.Errorf("invalidate listings: %w", err)
	}
	return nil
}
