package khoa

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/danbi-studio/disaster-sim-service/internal/domain"
	"github.com/danbi-studio/disaster-sim-service/internal/observability"
)

// CachedLocator wraps a StationLocator with an in-memory LRU cache. Station
// catalogs change rarely, so resolved stations are cached by kind, rounded
// coordinates, and filter set.
type CachedLocator struct {
	inner   domain.StationLocator
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedLocator creates a cache decorator around a station locator.
func NewCachedLocator(inner domain.StationLocator, maxEntries int, metrics *observability.Metrics) *CachedLocator {
	return &CachedLocator{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLocator) Nearest(ctx context.Context, kind string, lat, lon float64, filters domain.StationFilters) (domain.StationInfo, error) {
	key := cacheKey(kind, lat, lon, filters)
	if station, ok := c.cache.get(key); ok {
		c.metrics.StationCache.WithLabelValues("hit").Inc()
		return station, nil
	}
	c.metrics.StationCache.WithLabelValues("miss").Inc()
	station, err := c.inner.Nearest(ctx, kind, lat, lon, filters)
	if err != nil {
		return station, err
	}
	c.cache.put(key, station)
	return station, nil
}

// cacheKey rounds coordinates to two decimals, about a kilometer, so nearby
// queries share the same resolved station.
func cacheKey(kind string, lat, lon float64, filters domain.StationFilters) string {
	return fmt.Sprintf("%s|%.2f,%.2f|%s|%s|%s",
		kind, lat, lon,
		strings.Join(filters.RequiredTypes, ","),
		strings.Join(filters.RequiredPrefixes, ","),
		strings.Join(filters.RequiredTerms, ","))
}

// lruCache is a simple thread-safe LRU cache for resolved stations.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.StationInfo
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.StationInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.StationInfo{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.StationInfo) {
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
