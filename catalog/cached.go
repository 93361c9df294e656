package catalog

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/internal/metrics"
)

// CachedCatalog fronts a Catalog with a Cache. Concurrent misses are
// coalesced into a single load from the source.
type CachedCatalog struct {
	source Catalog
	cache  Cache
	group  singleflight.Group
}

// NewCachedCatalog wraps source with cache.
func NewCachedCatalog(source Catalog, cache Cache) *CachedCatalog {
	return &CachedCatalog{source: source, cache: cache}
}

// ListActive serves from the cache when possible. Cache faults are logged
// and fall through to the source; source faults are returned to the caller.
func (c *CachedCatalog) ListActive(ctx context.Context) ([]VisaType, error) {
	backend := c.cache.Backend()

	visas, ok, err := c.cache.Get(ctx)
	if err != nil {
		logger.Warn("visa catalog cache read failed", "backend", backend, "error", err)
	}
	if ok {
		metrics.CatalogCacheHits.WithLabelValues(backend).Inc()
		return visas, nil
	}
	metrics.CatalogCacheMisses.WithLabelValues(backend).Inc()

	// The shared load outlives any one caller; each caller still stops
	// waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("active", func() (any, error) {
		loaded, err := c.source.ListActive(loadCtx)
		if err != nil {
			logger.ErrorCatalogRead()
			return nil, err
		}
		if err := c.cache.Set(loadCtx, loaded); err != nil {
			logger.Warn("visa catalog cache write failed", "backend", backend, "error", err)
		}
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers sharing a singleflight result each get their own slice.
		return cloneVisas(res.Val.([]VisaType)), nil
	}
}

// Invalidate drops the cached list.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.cache.Invalidate(ctx)
}
