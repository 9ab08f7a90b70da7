package resolver

import (
	"container/list"
	"path/filepath"
	"sync"
)

// Key identifies one resolution: a dotted component name seen from a directory
type Key struct {
	DotPath string
	Dir     string
}

// Entry is a cached resolution. Misses are cached too (Found == false).
// Candidates lists every path probed, so that creating or deleting any of
// them can invalidate the entry.
type Entry struct {
	Path       string
	Found      bool
	Candidates []string
}

// Cache stores resolutions. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key Key) (Entry, bool)
	Put(key Key, entry Entry)
	// InvalidateReferencing drops entries resolved from the directory of file
	InvalidateReferencing(file string) int
	// InvalidateTarget drops entries that probed path
	InvalidateTarget(path string) int
	Clear()
	Len() int
}

// DefaultCacheSize is used when a non-positive size is configured
const DefaultCacheSize = 4096

// LRUCache is a thread-safe least-recently-used Cache
type LRUCache struct {
	maxSize int
	mu      sync.Mutex
	items   map[Key]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key   Key
	entry Entry
}

// NewLRUCache creates a cache holding at most maxSize resolutions
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &LRUCache{
		maxSize: maxSize,
		items:   make(map[Key]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a resolution and marks it as recently used
func (c *LRUCache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*cacheEntry).entry, true
	}
	return Entry{}, false
}

// Put adds or replaces a resolution, evicting the oldest when full
func (c *LRUCache) Put(key Key, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).entry = entry
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, entry: entry})
	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// InvalidateReferencing drops every entry keyed by the directory of file
// and returns how many were removed
func (c *LRUCache) InvalidateReferencing(file string) int {
	dir := filepath.Clean(filepath.Dir(file))
	return c.removeIf(func(ce *cacheEntry) bool {
		return ce.key.Dir == dir
	})
}

// InvalidateTarget drops every entry whose candidate list contains path
// and returns how many were removed
func (c *LRUCache) InvalidateTarget(path string) int {
	path = filepath.Clean(path)
	return c.removeIf(func(ce *cacheEntry) bool {
		for _, candidate := range ce.entry.Candidates {
			if candidate == path {
				return true
			}
		}
		return false
	})
}

func (c *LRUCache) removeIf(match func(*cacheEntry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		ce := elem.Value.(*cacheEntry)
		if match(ce) {
			c.order.Remove(elem)
			delete(c.items, ce.key)
			removed++
		}
		elem = next
	}
	return removed
}

// Clear removes all entries
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element)
	c.order = list.New()
}

// Len returns the number of cached resolutions
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
