// Package cache memoizes expensive reads for a fixed time-to-live.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value      V
	computedAt time.Time
}

// Cache stores loaded values per key for a fixed TTL. Expired entries are
// replaced lazily on the next access; nothing is evicted in the background.
type Cache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
	group   singleflight.Group
}

// New creates a cache whose entries stay valid for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// WithClock replaces the clock used to stamp and expire entries.
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.now = now
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.computedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Get returns the cached value for key, calling load on a miss or after expiry.
// Concurrent misses for one key share a single load. Errors are not cached.
func (c *Cache[V]) Get(key string, load func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[V]{value: v, computedAt: c.now()}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len reports how many entries are held, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wrap binds load to key. The returned function reads through the cache and
// passes its context to load on a miss.
func Wrap[V any](c *Cache[V], key string, load func(ctx context.Context) (V, error)) func(ctx context.Context) (V, error) {
	return func(ctx context.Context) (V, error) {
		return c.Get(key, func() (V, error) {
			return load(ctx)
		})
	}
}
