package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache with per-entry expiry
type MemoryCache struct {
	cache  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats counts cache lookups
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Items  int   `json:"items"`
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a copy of a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		c.hits.Add(1)
		return append([]byte(nil), val.([]byte)...), true
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores a copy of value. A zero ttl uses the default expiration.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Stats returns lookup counters and the current item count
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Items:  c.cache.ItemCount(),
	}
}
