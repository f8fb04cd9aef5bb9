package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/pmp-analysis-service/internal/domain"
	"github.com/couchcryptid/pmp-analysis-service/internal/observability"
)

// CachedClient wraps a Fetcher with an in-memory LRU cache. Completed
// archive years are immutable, so they cache indefinitely; the current year
// is still being written and is never cached.
type CachedClient struct {
	inner   Fetcher
	cache   *lruCache
	metrics *observability.Metrics
	nowYear func() int
}

// NewCachedClient creates a cache decorator around an archive fetcher.
func NewCachedClient(inner Fetcher, maxEntries int, metrics *observability.Metrics) *CachedClient {
	return &CachedClient{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
		nowYear: func() int { return time.Now().UTC().Year() },
	}
}

func (c *CachedClient) FetchYear(ctx context.Context, lat, lon float64, year int) (domain.DailySeries, error) {
	key := fmt.Sprintf("%.4f|%.4f|%d", lat, lon, year)
	if series, ok := c.cache.get(key); ok {
		c.metrics.ArchiveCache.WithLabelValues("hit").Inc()
		return series, nil
	}
	c.metrics.ArchiveCache.WithLabelValues("miss").Inc()

	series, err := c.inner.FetchYear(ctx, lat, lon, year)
	if err != nil {
		return series, err
	}
	if year < c.nowYear() {
		c.cache.put(key, series)
	}
	return series, nil
}

// lruCache is a simple thread-safe LRU cache for daily series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.DailySeries
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.DailySeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.DailySeries{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.DailySeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
