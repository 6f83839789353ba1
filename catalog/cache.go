package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/projectnexus/storefront/core"
)

// Cache is the normalized in-memory product cache.
//
// Entities are keyed by product ID; re-fetching a product replaces its
// cached value entirely, there is no field merge. Result lists are
// keyed by their distinguishing argument set (operation + filters) and
// hold ID references into the entity table.
//
// Page merge policy: a later page of the same key set is appended
// after the cached pages as an identity-keyed upsert — a product ID
// already in the list keeps its first position (its entity body still
// updates), so pagination drift on the backend cannot duplicate
// entries. A fetch with a different key set lands in its own entry and
// is never merged.
//
// All reads return snapshots, never internal references.
type Cache struct {
	mu         sync.RWMutex
	entities   map[int]Product
	lists      map[string]*listEntry
	categories []string
	hasCats    bool
	logger     core.Logger

	hits   int64
	misses int64
}

type listEntry struct {
	ids        []int
	positions  map[int]int // product ID -> index in ids
	totalCount int
	hasMore    bool
}

// CacheOption customizes the cache.
type CacheOption func(*Cache)

// WithCacheLogger configures the logger.
func WithCacheLogger(l core.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entities: make(map[int]Product),
		lists:    make(map[string]*listEntry),
		logger:   &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PutProduct stores a product, replacing any cached value for the same
// ID.
func (c *Cache) PutProduct(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[p.ID] = p
}

// Product returns a snapshot of the cached product, if present.
func (c *Cache) Product(id int) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entities[id]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return Product{}, false
	}
	atomic.AddInt64(&c.hits, 1)
	return p, true
}

// ReplacePage starts a fresh list for the key set and stores the page.
// Used for the first page (offset 0) of any fetch: a changed argument
// set must never inherit the previous set's entries.
func (c *Cache) ReplacePage(key string, products []Product, totalCount int, hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &listEntry{
		positions:  make(map[int]int, len(products)),
		totalCount: totalCount,
		hasMore:    hasMore,
	}
	for _, p := range products {
		c.entities[p.ID] = p
		if _, seen := entry.positions[p.ID]; seen {
			continue
		}
		entry.positions[p.ID] = len(entry.ids)
		entry.ids = append(entry.ids, p.ID)
	}
	c.lists[key] = entry

	c.logger.Debug("Cache list replaced", map[string]interface{}{
		"operation": "cache_replace",
		"key":       key,
		"size":      len(entry.ids),
		"total":     totalCount,
	})
}

// AppendPage merges a subsequent page into the cached list for the
// same key set: new IDs are concatenated in page order after the
// cached pages, duplicates collapse onto their first position with the
// entity body updated. Appending to an unknown key starts a fresh
// list.
func (c *Cache) AppendPage(key string, products []Product, totalCount int, hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lists[key]
	if !ok {
		entry = &listEntry{positions: make(map[int]int)}
		c.lists[key] = entry
	}

	for _, p := range products {
		c.entities[p.ID] = p
		if _, seen := entry.positions[p.ID]; seen {
			continue
		}
		entry.positions[p.ID] = len(entry.ids)
		entry.ids = append(entry.ids, p.ID)
	}
	entry.totalCount = totalCount
	entry.hasMore = hasMore

	c.logger.Debug("Cache page appended", map[string]interface{}{
		"operation": "cache_append",
		"key":       key,
		"page_size": len(products),
		"size":      len(entry.ids),
	})
}

// List returns a snapshot of the cached list for the key set.
func (c *Cache) List(key string) ([]Product, int, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.lists[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, 0, false, false
	}
	atomic.AddInt64(&c.hits, 1)

	products := make([]Product, 0, len(entry.ids))
	for _, id := range entry.ids {
		if p, ok := c.entities[id]; ok {
			products = append(products, p)
		}
	}
	return products, entry.totalCount, entry.hasMore, true
}

// SetCategories caches the category name list.
func (c *Cache) SetCategories(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = append([]string(nil), names...)
	c.hasCats = true
}

// Categories returns a snapshot of the cached category names.
func (c *Cache) Categories() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasCats {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return append([]string(nil), c.categories...), true
}

// Invalidate drops the list entry for one key set. Entities stay; they
// may be referenced by other lists.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, key)
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = make(map[int]Product)
	c.lists = make(map[string]*listEntry)
	c.categories = nil
	c.hasCats = false
}

// Stats returns cache performance statistics for monitoring.
func (c *Cache) Stats() map[string]interface{} {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses

	c.mu.RLock()
	entities := len(c.entities)
	lists := len(c.lists)
	c.mu.RUnlock()

	stats := map[string]interface{}{
		"hits":          hits,
		"misses":        misses,
		"total_lookups": total,
		"entities":      entities,
		"lists":         lists,
	}
	if total > 0 {
		stats["hit_rate"] = float64(hits) / float64(total)
	}
	return stats
}
