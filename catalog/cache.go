package catalog

import (
	"context"
	"time"
)

// Cache holds the active visa type list so catalog reads can skip the store.
// Implementations exist for in-process memory and Redis.
type Cache interface {
	// Get returns the cached list and true on a hit. A miss is (nil, false, nil).
	Get(ctx context.Context) ([]VisaType, bool, error)

	// Set stores the list.
	Set(ctx context.Context, visas []VisaType) error

	// Invalidate clears the cache, forcing a reload on next read.
	Invalidate(ctx context.Context) error

	// Backend names the implementation for metrics labels.
	Backend() string
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// 0 means no expiration (manual invalidation only).
	TTL time.Duration

	// KeyPrefix namespaces keys in shared caches such as Redis.
	KeyPrefix string
}

// DefaultCacheConfig returns the defaults used when nothing is configured.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:       5 * time.Minute,
		KeyPrefix: "visa-intake",
	}
}

func cloneVisas(visas []VisaType) []VisaType {
	if visas == nil {
		return nil
	}
	out := make([]VisaType, len(visas))
	copy(out, visas)
	return out
}
