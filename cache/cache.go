package cache

import (
	"time"

	"github.com/CharlesToronto/brotherstudio/config"
	"github.com/CharlesToronto/brotherstudio/model"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// SummaryKey is where the admin analytics summary is cached
const SummaryKey = "analytics:summary"

// Cache wraps Ristretto with the read-side helpers the site needs.
// A nil *Cache is valid and behaves as an always-empty cache.
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a new cache instance with the given configuration
func New(cfg config.CacheConfig) (*Cache, error) {
	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize), // Number of keys to track frequency for admission
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Msg("Cache initialized successfully")

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// Get retrieves a value from the cache
func (c *Cache) Get(key string) (interface{}, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	return c.client.Get(key)
}

// Set stores a value with the configured TTL. Ristretto admits values
// asynchronously, so a Get right after Set may still miss.
func (c *Cache) Set(key string, value interface{}, cost int64) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.SetWithTTL(key, value, cost, c.ttl)
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(key)
}

// Wait blocks until pending Sets are applied
func (c *Cache) Wait() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Wait()
}

// Summary returns the cached analytics summary
func (c *Cache) Summary() (model.AnalyticsSummary, bool) {
	value, found := c.Get(SummaryKey)
	if !found {
		return model.AnalyticsSummary{}, false
	}
	summary, ok := value.(model.AnalyticsSummary)
	return summary, ok
}

// SetSummary caches the analytics summary
func (c *Cache) SetSummary(summary model.AnalyticsSummary) {
	// Cost ~ one small JSON document
	c.Set(SummaryKey, summary, 1024)
}

// InvalidateSummary drops the cached summary after a new page view
func (c *Cache) InvalidateSummary() {
	c.Delete(SummaryKey)
}

// Close cleanly shuts down the cache
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
		log.Info().Msg("Cache closed")
	}
}

// MetricsSnapshot is a point-in-time copy of Ristretto's counters
type MetricsSnapshot struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	KeysAdded   uint64  `json:"keys_added"`
	KeysEvicted uint64  `json:"keys_evicted"`
	HitRatio    float64 `json:"hit_ratio"`
	TTLSeconds  int     `json:"ttl_seconds"`
}

// GetMetricsSnapshot returns current cache metrics as a snapshot
func (c *Cache) GetMetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	if c.client == nil || c.client.Metrics == nil {
		return MetricsSnapshot{TTLSeconds: int(c.ttl.Seconds())}
	}

	m := c.client.Metrics
	return MetricsSnapshot{
		Hits:        m.Hits(),
		Misses:      m.Misses(),
		KeysAdded:   m.KeysAdded(),
		KeysEvicted: m.KeysEvicted(),
		HitRatio:    m.Ratio(),
		TTLSeconds:  int(c.ttl.Seconds()),
	}
}
