package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})

	c.Set(ctx, "exam:JEE", 42)
	value, found := c.Get(ctx, "exam:JEE")
	require.True(t, found)
	assert.Equal(t, 42, value)

	_, found = c.Get(ctx, "exam:NEET")
	assert.False(t, found)
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})

	c.SetWithTTL(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestCacheLRUEviction(t *testing.T) {
	ctx := context.Background()
	evicted := make(map[string]bool)
	c := newTestCache(t, Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Minute,
		MaxItems:        3,
		OnEviction:      func(key string, _ any) { evicted[key] = true },
	})

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), i)
	}
	// Touch k0 so k1 becomes the LRU entry.
	_, found := c.Get(ctx, "k0")
	require.True(t, found)

	c.Set(ctx, "k3", 3)

	assert.True(t, evicted["k1"])
	_, found = c.Get(ctx, "k0")
	assert.True(t, found)
	_, found = c.Get(ctx, "k3")
	assert.True(t, found)
	assert.Equal(t, 3, c.Size())
}

func TestTieredCacheFallsThroughToFetcher(t *testing.T) {
	ctx := context.Background()
	tc, err := NewTieredCache(&TieredCacheConfig{EnableL1: true, L1MaxItems: 10, L1TTL: time.Minute})
	require.NoError(t, err)
	defer tc.Close()

	fetches := 0
	fetcher := func(ctx context.Context, key string) (any, error) {
		fetches++
		return "from-store", nil
	}

	value, found := tc.Get(ctx, "profile:u1", fetcher)
	require.True(t, found)
	assert.Equal(t, "from-store", value)
	assert.Equal(t, 1, fetches)

	// Second read is an L1 hit; the fetcher is not called again.
	value, found = tc.Get(ctx, "profile:u1", fetcher)
	require.True(t, found)
	assert.Equal(t, "from-store", value)
	assert.Equal(t, 1, fetches)
}

func TestTieredCacheFetcherErrorIsMiss(t *testing.T) {
	ctx := context.Background()
	tc, err := NewTieredCache(&TieredCacheConfig{EnableL1: true, L1MaxItems: 10, L1TTL: time.Minute})
	require.NoError(t, err)
	defer tc.Close()

	fetcher := func(ctx context.Context, key string) (any, error) {
		return nil, fmt.Errorf("store unavailable")
	}

	_, found := tc.Get(ctx, "profile:u1", fetcher)
	assert.False(t, found)
}
