// Package cache is a process-local expiring cache. One entry carries two
// horizons: a fresh TTL set per key, and a shared stale window after which the
// janitor evicts it. Reads between the two are served only through GetStale,
// used as a fallback when the authoritative source is unavailable.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

type Cache[K comparable, V any] struct {
	mu          sync.RWMutex
	items       map[K]entry[V]
	staleWindow time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

// New creates a cache whose janitor evicts entries older than staleWindow
// every sweepInterval.
func New[K comparable, V any](staleWindow, sweepInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items:       make(map[K]entry[V]),
		staleWindow: staleWindow,
		done:        make(chan struct{}),
	}
	go c.janitor(sweepInterval)
	return c
}

// Get returns the value if it is younger than its TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || time.Since(e.storedAt) > e.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetStale returns the value if it is younger than maxAge, regardless of the
// TTL it was stored with.
func (c *Cache[K, V]) GetStale(key K, maxAge time.Duration) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || time.Since(e.storedAt) > maxAge {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: time.Now(), ttl: ttl}
	c.mu.Unlock()
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.staleWindow)
			c.mu.Lock()
			for k, e := range c.items {
				if e.storedAt.Before(cutoff) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
