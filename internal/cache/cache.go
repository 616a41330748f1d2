// Package cache memoizes expensive dataset loads behind a TTL, so the
// slow, rate-limited record store is hit at most once per key per TTL
// window no matter how many requests are in flight.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a keyed read-through cache. Concurrent Gets for the same stale
// key collapse into a single loader invocation.
type Cache[T any] struct {
	clock func() time.Time
	sf    singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[T]
}

type entry[T any] struct {
	value    T
	loadedAt time.Time
}

func New[T any]() *Cache[T] {
	return NewWithClock[T](time.Now)
}

// NewWithClock allows a fake clock in tests.
func NewWithClock[T any](clock func() time.Time) *Cache[T] {
	return &Cache[T]{
		clock:   clock,
		entries: make(map[string]entry[T]),
	}
}

// Get returns the cached value for key if its age is within ttl, otherwise
// invokes load and stores the result. When load fails and a stale value is
// still present, the stale value is served instead of the error; only a
// cold miss propagates the loader failure.
func (c *Cache[T]) Get(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.fresh(key, ttl); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine refreshed the entry.
		if v, ok := c.fresh(key, ttl); ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			c.mu.RLock()
			stale, ok := c.entries[key]
			c.mu.RUnlock()
			if ok {
				return stale.value, nil
			}
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[T]{value: v, loadedAt: c.clock()}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate discards the entry for key, forcing the next Get to reload.
// Must be called right after any write to the backing store for that key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	// Drop any in-flight load so late joiners do not share a result
	// computed before the write.
	c.sf.Forget(key)
}

func (c *Cache[T]) fresh(key string, ttl time.Duration) (T, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && now.Sub(e.loadedAt) <= ttl {
		return e.value, true
	}
	var zero T
	return zero, false
}
