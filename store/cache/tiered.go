package cache

import (
	"context"
	"time"
)

// TieredCache implements a three-tier caching strategy:
//   - L1: in-memory cache (fast, small, DEFAULT)
//   - L2: Redis cache (moderate, shared, OPTIONAL)
//   - L3: store callback (slow, persistent, the source of truth)
//
// The cache is purely a latency optimization: engine correctness never
// depends on a hit, and every miss falls through to the L3 fetcher.
type TieredCache struct {
	l1        *Cache
	l2        RedisCacheInterface
	l1Enabled bool
	l2Enabled bool
}

// L3Fetcher is the function to fetch data from the store (L3).
type L3Fetcher func(ctx context.Context, key string) (any, error)

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int           // Max items in L1 memory cache
	L1TTL      time.Duration // TTL for L1 cache entries
	L2TTL      time.Duration // TTL for L2 Redis cache entries
	EnableL1   bool          // Enable L1 memory cache (default: true)
	EnableL2   bool          // Enable L2 Redis cache (auto-enabled if MASTERY_CACHE_REDIS_ADDR set)
	Redis      *RedisCacheConfig
}

// DefaultTieredConfig returns the default tiered cache configuration:
// L1 enabled, L2 only when Redis is configured in the environment.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      30 * time.Minute,
		L2TTL:      30 * time.Minute,
		EnableL1:   true,
		EnableL2:   IsRedisEnabled(),
	}
}

// NewTieredCache creates a new three-tier cache.
func NewTieredCache(config *TieredCacheConfig) (*TieredCache, error) {
	if config == nil {
		config = DefaultTieredConfig()
	}

	tc := &TieredCache{
		l1Enabled: config.EnableL1,
		l2Enabled: config.EnableL2,
	}

	if config.EnableL1 {
		tc.l1 = New(Config{
			DefaultTTL:      config.L1TTL,
			CleanupInterval: 1 * time.Minute,
			MaxItems:        config.L1MaxItems,
		})
	}

	if config.EnableL2 {
		redisConfig := config.Redis
		if redisConfig == nil {
			redisConfig = RedisConfigFromEnv()
		}
		l2, err := NewRedisCache(redisConfig)
		if err != nil {
			// Redis being down must not take the engine down with it.
			tc.l2 = NewNilRedisCache()
			tc.l2Enabled = false
		} else {
			tc.l2 = l2
		}
	}

	return tc, nil
}

// Get retrieves a value from the cache, checking L1, then L2, then L3.
func (t *TieredCache) Get(ctx context.Context, key string, fetcher L3Fetcher) (any, bool) {
	if t.l1Enabled && t.l1 != nil {
		if value, found := t.l1.Get(ctx, key); found {
			return value, true
		}
	}

	if t.l2Enabled && t.l2 != nil {
		if value, found := t.l2.Get(ctx, key); found {
			// Promote to L1
			if t.l1Enabled && t.l1 != nil {
				t.l1.Set(ctx, key, value)
			}
			return value, true
		}
	}

	if fetcher != nil {
		value, err := fetcher(ctx, key)
		if err != nil {
			return nil, false
		}

		if t.l1Enabled && t.l1 != nil {
			t.l1.Set(ctx, key, value)
		}
		if t.l2Enabled && t.l2 != nil {
			t.l2.Set(ctx, key, value)
		}

		return value, true
	}

	return nil, false
}

// Set stores a value in both L1 and L2.
func (t *TieredCache) Set(ctx context.Context, key string, value any) {
	if t.l1Enabled && t.l1 != nil {
		t.l1.Set(ctx, key, value)
	}
	if t.l2Enabled && t.l2 != nil {
		t.l2.Set(ctx, key, value)
	}
}

// SetWithTTL stores a value with custom TTL.
func (t *TieredCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) {
	if t.l1Enabled && t.l1 != nil {
		t.l1.SetWithTTL(ctx, key, value, ttl)
	}
	if t.l2Enabled && t.l2 != nil {
		t.l2.SetWithTTL(ctx, key, value, ttl)
	}
}

// Delete removes a value from both L1 and L2.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	if t.l1Enabled && t.l1 != nil {
		t.l1.Delete(ctx, key)
	}
	if t.l2Enabled && t.l2 != nil {
		t.l2.Delete(ctx, key)
	}
}

// Invalidate removes a value and optionally refreshes it.
func (t *TieredCache) Invalidate(ctx context.Context, key string, fetcher L3Fetcher) error {
	t.Delete(ctx, key)

	if fetcher != nil {
		value, err := fetcher(ctx, key)
		if err != nil {
			return err
		}
		t.Set(ctx, key, value)
	}

	return nil
}

// Clear clears all caches.
func (t *TieredCache) Clear(ctx context.Context) {
	if t.l1Enabled && t.l1 != nil {
		t.l1.Clear(ctx)
	}
	if t.l2Enabled && t.l2 != nil {
		t.l2.Clear(ctx)
	}
}

// Close releases both cache tiers.
func (t *TieredCache) Close() error {
	if t.l1 != nil {
		t.l1.Close()
	}
	if t.l2 != nil {
		return t.l2.Close()
	}
	return nil
}
