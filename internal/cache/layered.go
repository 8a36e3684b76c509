package cache

import "time"

// LayeredCache checks memory first, then disk. Without a directory it is
// memory only.
type LayeredCache struct {
	memory *MemoryCache
	disk   Cache
}

// NewLayeredCache creates a new layered cache. An empty diskDir disables
// the disk layer.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	c := &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
	}
	if diskDir != "" {
		c.disk = NewDiskCache(diskDir, diskTTL)
	}
	return c
}

// Get retrieves a value, promoting disk hits to memory
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if c.disk == nil {
		return nil, false
	}

	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}
	return nil, false
}

// Set stores a value in every layer
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if c.disk != nil {
		return c.disk.Set(key, value, ttl)
	}
	return nil
}

// Delete removes a value from every layer
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	if c.disk != nil {
		return c.disk.Delete(key)
	}
	return nil
}

// Clear removes all values from every layer
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	if c.disk != nil {
		return c.disk.Clear()
	}
	return nil
}

// Stats returns the memory layer counters
func (c *LayeredCache) Stats() Stats {
	return c.memory.Stats()
}
