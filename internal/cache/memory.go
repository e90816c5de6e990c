// internal/cache/memory.go
package cache

import (
	"sync"
	"time"

	"market-solver/internal/common/metrics"
)

// MemoryCache is the in-process backend. A mutex guards every
// read-modify-write so a concurrent host never observes a partially-written
// entry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) CleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if entry.Expired(now, c.ttl) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) Get(prompt, model string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[entryKey(prompt, model)]
	c.mu.RUnlock()

	if !ok || entry.Expired(c.now(), c.ttl) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return "", false
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return entry.Response, true
}

func (c *MemoryCache) Store(prompt, model, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entryKey(prompt, model)] = Entry{
		Prompt:    prompt,
		Model:     model,
		Response:  response,
		CreatedAt: c.now(),
	}
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
}
