// Package favicon resolves website favicon URLs through a tiered chain
// of strategies fronted by a TTL cache.
package favicon

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a resolved favicon URL stays cached.
const DefaultTTL = 30 * 24 * time.Hour

// CacheStats describes the state of a cache backend.
type CacheStats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache stores resolved favicon URLs keyed by domain.
type Cache interface {
	// Get returns the cached URL for a domain, or false when absent or
	// expired.
	Get(ctx context.Context, domain string) (string, bool)
	// Set stores the URL for a domain with the backend's TTL.
	Set(ctx context.Context, domain, url string)
	// Sweep evicts expired entries eagerly.
	Sweep(ctx context.Context)
	// Clear removes all entries.
	Clear(ctx context.Context)
	// Stats reports size and hit counters.
	Stats(ctx context.Context) CacheStats
}

type memoryEntry struct {
	url      string
	storedAt time.Time
}

// MemoryCache is the in-process Cache backend. Entries are evicted
// lazily on read and eagerly via Sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl falls back to
// DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, domain string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[domain]
	if !ok {
		c.misses++
		return "", false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, domain)
		c.misses++
		return "", false
	}
	c.hits++
	return entry.url, true
}

func (c *MemoryCache) Set(_ context.Context, domain, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = memoryEntry{url: url, storedAt: c.now()}
}

func (c *MemoryCache) Sweep(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	for domain, entry := range c.entries {
		if entry.storedAt.Before(cutoff) {
			delete(c.entries, domain)
		}
	}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

func (c *MemoryCache) Stats(_ context.Context) CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
}
