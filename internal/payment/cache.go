package payment

import (
	"sync"
	"time"
)

// Cache is the Payment Cache (C1): endpoint path -> derived payment
// parameters. Entries older than TTL are evicted lazily, on read
// (spec.md §4.3 invariant).
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]CachedParams
	now     func() time.Time
}

// NewCache builds a Cache with the given TTL (spec.md default: 1 hour).
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]CachedParams),
		now:     time.Now,
	}
}

// Get returns the cached parameters for path, evicting them first if
// expired.
func (c *Cache) Get(path string) (CachedParams, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok {
		return CachedParams{}, false
	}
	if entry.Expired(c.ttl, c.now()) {
		delete(c.entries, path)
		return CachedParams{}, false
	}
	return entry, true
}

// Set stores option/resource for path, stamped with the current time.
func (c *Cache) Set(path string, option PaymentOption, resource *ResourceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = CachedParams{Option: option, Resource: resource, CachedAt: c.now()}
}

// Invalidate removes path's cached entry, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
