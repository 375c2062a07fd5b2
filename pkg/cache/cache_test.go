package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/pkg/cache"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		_, err := c.Get(ctx, "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("set get delete", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", 42, time.Minute))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, c.Delete(ctx, "k"))
		ok, err = c.Has(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(0))
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("negative ttl never expires", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithDefaultTTL(time.Millisecond), cache.WithCleanupInterval(0))
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", -1))
		time.Sleep(5 * time.Millisecond)

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("janitor purges expired entries", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(2 * time.Millisecond))
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
		require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 2*time.Millisecond)
	})

	t.Run("closed cache rejects writes", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		require.ErrorIs(t, c.Set(ctx, "k", "v", 0), cache.ErrClosed)
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrClosed)
	})
}

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("json round trip with prefix", func(t *testing.T) {
		t.Parallel()

		mr, client := newRedis(t)
		c := cache.NewRedis[map[string]string](client, nil, cache.WithPrefix("p"))

		require.NoError(t, c.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute))
		assert.True(t, mr.Exists("p:k"))

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "b", v["a"])
	})

	t.Run("raw bytes", func(t *testing.T) {
		t.Parallel()

		mr, client := newRedis(t)
		c := cache.NewRedis[[]byte](client, cache.Raw())

		require.NoError(t, c.Set(ctx, "k", []byte("payload"), -1))
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "payload", got)
		assert.Zero(t, mr.TTL("k"))
	})

	t.Run("missing key and delete", func(t *testing.T) {
		t.Parallel()

		_, client := newRedis(t)
		c := cache.NewRedis[string](client, nil)

		_, err := c.Get(ctx, "nope")
		require.ErrorIs(t, err, cache.ErrNotFound)

		require.NoError(t, c.Set(ctx, "k", "v", 0))
		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, c.Delete(ctx, "k"))
		ok, err = c.Has(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("default ttl applied", func(t *testing.T) {
		t.Parallel()

		mr, client := newRedis(t)
		c := cache.NewRedis[string](client, nil, cache.WithRedisDefaultTTL(time.Minute))

		require.NoError(t, c.Set(ctx, "k", "v", 0))
		assert.Equal(t, time.Minute, mr.TTL("k"))
	})
}
