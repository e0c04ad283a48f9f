package nasa

import (
	"context"
	"sync"

	"github.com/perihelion-labs/neo-watch/internal/domain"
)

// feed is the client surface the cache decorates.
type feed interface {
	FetchRange(ctx context.Context, startDate, endDate string) (map[string][]domain.Observation, error)
	FetchByDate(ctx context.Context, date string) ([]domain.Observation, error)
}

// CachedFeed wraps a feed client with an in-memory LRU cache of by-date
// lookups. Range fetches always go upstream: they drive ingestion and must
// see fresh data.
type CachedFeed struct {
	inner feed
	cache *lruCache
}

// NewCachedFeed creates a cache decorator around a feed client.
func NewCachedFeed(inner feed, maxEntries int) *CachedFeed {
	return &CachedFeed{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedFeed) FetchRange(ctx context.Context, startDate, endDate string) (map[string][]domain.Observation, error) {
	return c.inner.FetchRange(ctx, startDate, endDate)
}

func (c *CachedFeed) FetchByDate(ctx context.Context, date string) ([]domain.Observation, error) {
	if observations, ok := c.cache.get(date); ok {
		return observations, nil
	}
	observations, err := c.inner.FetchByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a date the feed has not filled in yet
	// can be retried.
	if len(observations) > 0 {
		c.cache.put(date, observations)
	}
	return observations, nil
}

// lruCache is a simple thread-safe LRU cache of by-date observation lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Observation
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Observation) {
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
