package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, err := c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Set(ctx, "a", []byte{1, 2}, 0))
	val, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, val)

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	m := c.GetMetrics()
	assert.Equal(t, int64(3), m.TotalRequests)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.InDelta(t, 1.0/3.0, m.HitRatio, 1e-9)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Second)
	now := time.Unix(1000, 0)
	c.nowFunc = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte{1}, 0))
	now = now.Add(500 * time.Millisecond)
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_Closed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	require.NoError(t, c.Close())
	assert.Equal(t, ErrCacheClosed, c.Set(ctx, "a", nil, 0))
	_, err := c.Get(ctx, "a")
	assert.Equal(t, ErrCacheClosed, err)
}

func TestRedisCache_KeysAndTTL(t *testing.T) {
	// Клиент без соединения: проверяются только ключи и TTL
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	cfg := &CacheConfig{MaxTTL: time.Minute}
	r := newRedisCacheWithClient(client, cfg)

	assert.Equal(t, "blocktick:chunk:1:2:3", r.key("chunk:1:2:3"))
	assert.Equal(t, 30*time.Second, r.clampTTL(0))
	assert.Equal(t, time.Minute, r.clampTTL(time.Hour))
	assert.Equal(t, 10*time.Second, r.clampTTL(10*time.Second))
}
