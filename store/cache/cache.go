package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Interface is the contract shared by every cache tier.
type Interface interface {
	Set(ctx context.Context, key string, value any)
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration)
	Get(ctx context.Context, key string) (any, bool)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Size() int64
	Close() error
}

// item is a cached value with its expiration time.
type item struct {
	value      any
	expiration time.Time
}

func (i *item) expired(now time.Time) bool {
	return now.After(i.expiration)
}

// Config holds the configuration of the in-memory cache.
type Config struct {
	// DefaultTTL is used by Set.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired items are swept. Zero disables the sweeper.
	CleanupInterval time.Duration
	// MaxItems bounds the number of entries. Zero means unbounded.
	MaxItems int
	// OnEviction is called for every expired or evicted item.
	OnEviction func(key string, value any)
}

// Cache is a thread-safe in-memory cache with TTL expiration.
type Cache struct {
	data      sync.Map
	config    Config
	itemCount int64

	stopChan  chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	c := &Cache{
		config:   config,
		stopChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	_, loaded := c.data.Swap(key, &item{value: value, expiration: time.Now().Add(ttl)})
	if !loaded {
		if atomic.AddInt64(&c.itemCount, 1) > int64(c.config.MaxItems) && c.config.MaxItems > 0 {
			c.evictOldest(key)
		}
	}
}

func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	v, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.expired(time.Now()) {
		c.remove(key, it)
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Delete(_ context.Context, key string) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		atomic.AddInt64(&c.itemCount, -1)
	}
}

func (c *Cache) Clear(_ context.Context) {
	c.data.Range(func(key, _ any) bool {
		if _, loaded := c.data.LoadAndDelete(key); loaded {
			atomic.AddInt64(&c.itemCount, -1)
		}
		return true
	})
}

// Size returns the number of entries, expired ones included until swept.
func (c *Cache) Size() int64 {
	return atomic.LoadInt64(&c.itemCount)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.stopChan) })
	return nil
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cache) deleteExpired() {
	now := time.Now()
	c.data.Range(func(key, value any) bool {
		if it := value.(*item); it.expired(now) {
			c.remove(key.(string), it)
		}
		return true
	})
}

// evictOldest drops the entry closest to expiry, never the one just written.
func (c *Cache) evictOldest(keep string) {
	var (
		oldestKey string
		oldest    *item
	)
	c.data.Range(func(key, value any) bool {
		k, it := key.(string), value.(*item)
		if k == keep {
			return true
		}
		if oldest == nil || it.expiration.Before(oldest.expiration) {
			oldestKey, oldest = k, it
		}
		return true
	})
	if oldest != nil {
		c.remove(oldestKey, oldest)
	}
}

func (c *Cache) remove(key string, it *item) {
	if c.data.CompareAndDelete(key, it) {
		atomic.AddInt64(&c.itemCount, -1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, it.value)
		}
	}
}
