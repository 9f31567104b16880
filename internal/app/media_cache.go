package app

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
)

// MediaCache is an LRU of hydrated media results keyed by file id, with a
// TTL. Any write can change a result, so the write queue purges it after
// every successful job. A nil cache is valid and caches nothing.
// Cached results are shared and must not be modified by callers.
type MediaCache struct {
	lru     *expirable.LRU[int64, *primary.MediaResult]
	metrics *metrics.Metrics
}

// NewMediaCache creates a cache holding up to size results. A size of 0
// returns nil, which disables caching.
func NewMediaCache(size int, ttl time.Duration, m *metrics.Metrics) *MediaCache {
	if size <= 0 {
		return nil
	}
	return &MediaCache{
		lru:     expirable.NewLRU[int64, *primary.MediaResult](size, nil, ttl),
		metrics: m,
	}
}

// Get returns a cached result.
func (c *MediaCache) Get(id int64) (*primary.MediaResult, bool) {
	if c == nil {
		return nil, false
	}
	result, ok := c.lru.Get(id)
	if ok {
		c.metrics.CacheHits.Inc()
		return result, true
	}
	c.metrics.CacheMisses.Inc()
	return nil, false
}

// Add caches a result.
func (c *MediaCache) Add(result *primary.MediaResult) {
	if c == nil {
		return
	}
	c.lru.Add(result.ID, result)
}

// Purge drops every cached result.
func (c *MediaCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len returns how many results are cached.
func (c *MediaCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
