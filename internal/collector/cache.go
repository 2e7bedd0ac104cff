package collector

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"go.uber.org/zap"
)

// CacheConfig controls price cache retention
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// CacheObserver is notified of cache lookups, typically a metrics registry.
type CacheObserver interface {
	RecordCacheHit(source string)
	RecordCacheMiss(source string)
}

type cacheKey struct {
	symbol     string
	start, end int64
}

type cacheEntry struct {
	series    core.PriceSeries
	fetchedAt time.Time
}

// Cache memoizes a PriceSource by symbol and date range. Entries expire after
// the TTL; when full, the oldest entry is evicted. Failed fetches are not cached.
type Cache struct {
	source   PriceSource
	ttl      time.Duration
	maxSize  int
	logger   *zap.Logger
	observer CacheObserver
	now      func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
	order   []cacheKey // Track insertion order for eviction
}

// NewCache wraps source with a keyed TTL cache. logger and observer may be nil.
func NewCache(source PriceSource, cfg CacheConfig, logger *zap.Logger, observer CacheObserver) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1
	}
	return &Cache{
		source:   source,
		ttl:      cfg.TTL,
		maxSize:  cfg.MaxEntries,
		logger:   logger.With(zap.String("source", source.Name())),
		observer: observer,
		now:      time.Now,
		entries:  make(map[cacheKey]*cacheEntry),
		order:    make([]cacheKey, 0, cfg.MaxEntries),
	}
}

// Name returns the wrapped source's name.
func (c *Cache) Name() string {
	return c.source.Name()
}

// FetchHistory returns a cached copy when a live entry exists, otherwise
// fetches from the wrapped source.
func (c *Cache) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	key := cacheKey{symbol: symbol, start: start.Unix(), end: end.Unix()}

	if series, ok := c.lookup(key); ok {
		c.logger.Debug("price cache hit", zap.String("symbol", symbol))
		if c.observer != nil {
			c.observer.RecordCacheHit(c.source.Name())
		}
		return series, nil
	}

	if c.observer != nil {
		c.observer.RecordCacheMiss(c.source.Name())
	}

	series, err := c.source.FetchHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	c.store(key, series)
	c.logger.Debug("price cache stored",
		zap.String("symbol", symbol),
		zap.Int("points", len(series)),
	)
	return clone(series), nil
}

func (c *Cache) lookup(key cacheKey) (core.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.fetchedAt) >= c.ttl {
		c.remove(key)
		return nil, false
	}
	return clone(entry.series), true
}

func (c *Cache) store(key cacheKey, series core.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.remove(key)
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		c.remove(c.order[0])
	}

	c.entries[key] = &cacheEntry{series: clone(series), fetchedAt: c.now()}
	c.order = append(c.order, key)
}

// remove deletes key; callers hold mu.
func (c *Cache) remove(key cacheKey) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Invalidate drops every cached range of symbol and returns how many were removed.
func (c *Cache) Invalidate(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if key.symbol == symbol {
			c.remove(key)
			removed++
		}
	}
	return removed
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*cacheEntry)
	c.order = c.order[:0]
}

// Len returns the number of cached ranges, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func clone(series core.PriceSeries) core.PriceSeries {
	if series == nil {
		return nil
	}
	return append(core.PriceSeries{}, series...)
}
