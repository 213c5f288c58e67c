package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Config holds the configuration for the in-memory cache.
type Config struct {
	// DefaultTTL is applied by Set; SetWithTTL overrides it per entry.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
	// MaxItems caps the cache size; the least recently used entry is
	// evicted when the cap is reached. Zero means unbounded.
	MaxItems int
	// OnEviction is called for entries removed by expiry or LRU pressure.
	OnEviction func(key string, value any)
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
	element   *list.Element
}

// Cache is an in-memory TTL cache with LRU eviction. It is the L1 tier:
// fast, small, and always safe to lose.
type Cache struct {
	mu      sync.RWMutex
	config  Config
	items   map[string]*entry
	lruList *list.List
	done    chan struct{}
	closed  bool
}

// New creates a cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	c := &Cache{
		config:  config,
		items:   make(map[string]*entry),
		lruList: list.New(),
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if existing, ok := c.items[key]; ok {
		existing.value = value
		existing.expiresAt = time.Now().Add(ttl)
		c.lruList.MoveToFront(existing.element)
		return
	}

	if c.config.MaxItems > 0 && len(c.items) >= c.config.MaxItems {
		c.evictOldestLocked()
	}

	e := &entry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	e.element = c.lruList.PushFront(e)
	c.items[key] = e
}

// Get retrieves a value, reporting whether it was present and unexpired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(e, true)
		return nil, false
	}
	c.lruList.MoveToFront(e.element)
	return e.value, true
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.removeLocked(e, false)
	}
}

// Clear removes all values.
func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.lruList.Init()
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine. The cache must not be used afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *Cache) evictOldestLocked() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.removeLocked(oldest.Value.(*entry), true)
}

func (c *Cache) removeLocked(e *entry, evicted bool) {
	delete(c.items, e.key)
	c.lruList.Remove(e.element)
	if evicted && c.config.OnEviction != nil {
		c.config.OnEviction(e.key, e.value)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.items {
		if now.After(e.expiresAt) {
			c.removeLocked(e, true)
		}
	}
}
