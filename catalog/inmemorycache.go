package catalog

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache is a process-local Cache. Thread-safe for concurrent access.
type InMemoryCache struct {
	visas    []VisaType
	cachedAt time.Time
	config   CacheConfig
	now      func() time.Time
	mu       sync.RWMutex
	isValid  bool
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{
		config: config,
		now:    time.Now,
	}
}

// Get returns a copy of the cached list, or a miss if invalid or expired.
func (c *InMemoryCache) Get(ctx context.Context) ([]VisaType, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid() {
		return nil, false, nil
	}
	return cloneVisas(c.visas), true, nil
}

// Set stores a copy of visas.
func (c *InMemoryCache) Set(ctx context.Context, visas []VisaType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visas = cloneVisas(visas)
	if c.visas == nil {
		c.visas = []VisaType{}
	}
	c.cachedAt = c.now()
	c.isValid = true
	return nil
}

// Invalidate clears the cache.
func (c *InMemoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isValid = false
	c.visas = nil
	return nil
}

// IsValid reports whether the cache holds unexpired data.
func (c *InMemoryCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valid()
}

func (c *InMemoryCache) Backend() string { return "memory" }

// valid must be called with mu held.
func (c *InMemoryCache) valid() bool {
	if !c.isValid {
		return false
	}
	if c.config.TTL > 0 && c.now().Sub(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
