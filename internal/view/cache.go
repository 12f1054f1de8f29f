// Package view renders only the visible slice of a large materialized block
// history. It implements the scheduler's sink boundary so blocks materialize
// directly into the windowed list.
package view

import (
	"container/list"
	"sync"
)

// rendered is one cached render: the styled output and its height in lines.
type rendered struct {
	content string
	height  int
}

// renderCache is an LRU over rendered blocks, keyed by block identity and
// width. It keeps memory bounded while avoiding re-rendering unchanged
// blocks; a finalized block's markup never changes, so entries only die by
// eviction or width invalidation.
type renderCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	lru     *list.List
}

type cacheEntry struct {
	key string
	val rendered
}

func newRenderCache(maxSize int) *renderCache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &renderCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *renderCache) get(key string) (rendered, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).val, true
	}
	return rendered{}, false
}

func (c *renderCache) put(key string, val rendered) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).val = val
		return
	}
	if c.lru.Len() >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			delete(c.entries, oldest.Value.(*cacheEntry).key)
			c.lru.Remove(oldest)
		}
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, val: val})
}

func (c *renderCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.lru.Remove(elem)
	}
}

// invalidateAll drops every entry. Call on width changes, when all cached
// renders go stale at once.
func (c *renderCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *renderCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
