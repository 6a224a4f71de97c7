// Package cache implements the search service's read-through result
// cache. Results live under search:posts:<query>:<limit>; any index
// mutation wipes the whole prefix, since there is no cheap way to know
// which cached queries a changed post appears in.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/metrics"
)

// SearchTTL bounds staleness of a cached result set.
const SearchTTL = 5 * time.Minute

const searchPrefix = "search:posts:"

// SearchKey returns the cache key for one query and result size.
func SearchKey(query string, limit int) string {
	return fmt.Sprintf("%s%s:%d", searchPrefix, query, limit)
}

// Cache wraps the shared store with search-domain keys and TTLs.
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

// GetOrCompute returns the cached result for key, or runs compute and
// stores its result. The second return reports whether the value came
// from cache. A store failure degrades to computing without caching.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, bool, error) {
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

	if err := c.store.Set(ctx, key, value, SearchTTL); err != nil {
		c.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return value, false, nil
}

// InvalidateAll removes every cached result set.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if err := c.store.DeleteMatching(ctx, searchPrefix); err != nil {
		return fmt.Errorf("invalidate search results: %w", err)
	}
	return nil
}
