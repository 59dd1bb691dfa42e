package pipeline

import (
	"context"
	"sync"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/observability"
)

// CachedTransformer wraps a Transformer with an in-memory LRU keyed by the
// workbook's content hash. Builds are pure, so a hit returns exactly what a
// rebuild would.
type CachedTransformer struct {
	inner   Transformer
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedTransformer creates a cache decorator around a transformer.
func NewCachedTransformer(inner Transformer, maxEntries int, metrics *observability.Metrics) *CachedTransformer {
	return &CachedTransformer{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedTransformer) Transform(ctx context.Context, raw domain.RawWorkbook) (domain.Records, error) {
	rec, _, err := c.TransformCached(ctx, raw)
	return rec, err
}

// TransformCached is Transform that also reports whether the cache served
// the result.
func (c *CachedTransformer) TransformCached(ctx context.Context, raw domain.RawWorkbook) (domain.Records, bool, error) {
	key := domain.ContentHash(raw.Bytes)
	if rec, ok := c.cache.get(key); ok {
		c.metrics.TransformCache.WithLabelValues("hit").Inc()
		return rec, true, nil
	}
	c.metrics.TransformCache.WithLabelValues("miss").Inc()

	rec, err := c.inner.Transform(ctx, raw)
	if err != nil {
		return rec, false, err
	}
	c.cache.put(key, rec)
	return rec, false, nil
}

// lruCache is a simple thread-safe LRU cache for built records.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Records
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Records, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Records{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Records) {
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

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
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
