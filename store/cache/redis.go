package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCacheInterface defines the interface for the Redis L2 cache.
// The engine works fine with just the memory cache; Redis is only needed
// for multi-instance deployments where scheduler replicas share lookups.
type RedisCacheInterface interface {
	Set(ctx context.Context, key string, value any)
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration)
	Get(ctx context.Context, key string) (any, bool)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Close() error
}

// RedisCacheConfig holds the Redis connection configuration.
type RedisCacheConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	DefaultTTL   time.Duration
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		KeyPrefix:    "mastery:",
		DefaultTTL:   30 * time.Minute,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisConfigFromEnv creates Redis config from environment variables.
// Environment variables:
//   - MASTERY_CACHE_REDIS_ADDR: Redis address (default: localhost:6379)
//   - MASTERY_CACHE_REDIS_PASSWORD: Redis password (default: "")
//   - MASTERY_CACHE_REDIS_PREFIX: Key prefix (default: "mastery:")
func RedisConfigFromEnv() *RedisCacheConfig {
	config := DefaultRedisConfig()

	if addr := os.Getenv("MASTERY_CACHE_REDIS_ADDR"); addr != "" {
		config.Addr = addr
	}
	if password := os.Getenv("MASTERY_CACHE_REDIS_PASSWORD"); password != "" {
		config.Password = password
	}
	if prefix := os.Getenv("MASTERY_CACHE_REDIS_PREFIX"); prefix != "" {
		config.KeyPrefix = prefix
	}

	return config
}

// IsRedisEnabled checks if Redis caching should be enabled based on environment.
// Returns true if MASTERY_CACHE_REDIS_ADDR is set.
func IsRedisEnabled() bool {
	return os.Getenv("MASTERY_CACHE_REDIS_ADDR") != ""
}

// GenerateCacheKey generates a cache key from components.
func GenerateCacheKey(components ...string) string {
	key := ""
	for i, c := range components {
		if i > 0 {
			key += ":"
		}
		key += c
	}
	return fmt.Sprintf("%s:%s", key, KeyHash(key))
}

// KeyHash generates a SHA256 hash of the key for obfuscation.
func KeyHash(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])[:16]
}

// RedisCache is a Redis-based cache implementation for L2 caching.
// Values are stored as JSON; readers get back generic decoded values and
// should fall through to the store when shapes do not match.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// NewRedisCache creates a new Redis cache, verifying connectivity.
func NewRedisCache(config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("Redis cache connected", "addr", config.Addr)

	return &RedisCache{
		client:     client,
		keyPrefix:  config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
	}, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) {
	r.SetWithTTL(ctx, key, value, r.defaultTTL)
}

func (r *RedisCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to marshal cache value", "key", key, "error", err)
		return
	}

	if err := r.client.Set(ctx, r.fullKey(key), data, ttl).Err(); err != nil {
		slog.Warn("failed to set cache value", "key", key, "error", err)
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (any, bool) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("failed to get cache value", "key", key, "error", err)
		}
		return nil, false
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("failed to unmarshal cache value", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		slog.Warn("failed to delete cache value", "key", key, "error", err)
	}
}

func (r *RedisCache) Clear(ctx context.Context) {
	pattern := r.keyPrefix + "*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			r.client.Del(ctx, keys...)
			keys = keys[:0]
		}
	}
	if len(keys) > 0 {
		r.client.Del(ctx, keys...)
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) fullKey(key string) string {
	return r.keyPrefix + key
}

// NilRedisCache is a no-op implementation of RedisCacheInterface.
// This allows the tiered cache to work without Redis.
type NilRedisCache struct{}

// NewNilRedisCache creates a no-op Redis cache.
func NewNilRedisCache() *NilRedisCache {
	return &NilRedisCache{}
}

func (n *NilRedisCache) Set(ctx context.Context, key string, value any) {}

func (n *NilRedisCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) {}

func (n *NilRedisCache) Get(ctx context.Context, key string) (any, bool) {
	return nil, false
}

func (n *NilRedisCache) Delete(ctx context.Context, key string) {}

func (n *NilRedisCache) Clear(ctx context.Context) {}

func (n *NilRedisCache) Close() error {
	return nil
}
