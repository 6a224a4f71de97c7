package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStore_GetSet(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		value, found, err := store.Get(ctx, "post:missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "post:1", []byte(`{"id":"1"}`), time.Hour))

		value, found, err := store.Get(ctx, "post:1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte(`{"id":"1"}`), value)
	})

	t.Run("entry expires after ttl", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "post:2", []byte("x"), time.Minute))

		mr.FastForward(time.Minute + time.Second)

		_, found, err := store.Get(ctx, "post:2")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRedisStore_Delete(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "post:1", []byte("x"), time.Hour))
	require.NoError(t, store.Delete(ctx, "post:1"))

	_, found, err := store.Get(ctx, "post:1")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is not an error.
	require.NoError(t, store.Delete(ctx, "post:1"))
}

func TestRedisStore_DeleteMatching(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	for page := 1; page <= 150; page++ {
		key := fmt.Sprintf("posts:%d:10", page)
		require.NoError(t, store.Set(ctx, key, []byte("page"), time.Hour))
	}
	require.NoError(t, store.Set(ctx, "post:1", []byte("keep"), time.Hour))

	require.NoError(t, store.DeleteMatching(ctx, "posts:"))

	for page := 1; page <= 150; page++ {
		key := fmt.Sprintf("posts:%d:10", page)
		_, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, "expected %s to be deleted", key)
	}

	// The per-resource family with a different prefix survives.
	_, found, err := store.Get(ctx, "post:1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisStore_Increment(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	t.Run("counts monotonically within a window", func(t *testing.T) {
		for want := int64(1); want <= 5; want++ {
			count, err := store.Increment(ctx, "ratelimit:global:1.2.3.4", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, want, count)
		}
	})

	t.Run("resets at the window boundary", func(t *testing.T) {
		mr.FastForward(time.Minute + time.Second)

		count, err := store.Increment(ctx, "ratelimit:global:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("independent keys do not interfere", func(t *testing.T) {
		count, err := store.Increment(ctx, "ratelimit:global:5.6.7.8", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
