// Package cache is a small TTL cache for search results. Entries keep
// their insertion time; the TTL is supplied on read so admin-tunable
// TTLs apply retroactively to what is already cached.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	at  time.Time
	val V
}

type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
}

func New[V any]() *TTL[V] {
	return &TTL[V]{entries: make(map[string]entry[V])}
}

func (c *TTL[V]) Get(key string, ttl time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Since(e.at) > ttl {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *TTL[V]) Set(key string, val V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{at: time.Now(), val: val}
	c.mu.Unlock()
}

func (c *TTL[V]) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Purge drops entries older than maxAge. The janitor calls this so
// long-dead queries do not pin their result sets in memory.
func (c *TTL[V]) Purge(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if time.Since(e.at) > maxAge {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
