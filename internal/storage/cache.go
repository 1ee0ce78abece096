package storage

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is an LRU cache with a per-entry TTL. It bounds the number of
// entries, not their size.
type Cache[K comparable, V any] struct {
	entries  map[K]*cacheEntry[K, V]
	mutex    sync.Mutex
	maxItems int
	ttl      time.Duration
	now      func() time.Time
	// LRU list with dummy head and tail
	head *cacheEntry[K, V]
	tail *cacheEntry[K, V]
	// Statistics tracking (atomic for thread safety)
	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	createdAt time.Time
	prev      *cacheEntry[K, V]
	next      *cacheEntry[K, V]
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewCache creates a cache holding at most maxItems entries for ttl each.
// A non-positive maxItems disables caching.
func NewCache[K comparable, V any](maxItems int, ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:  make(map[K]*cacheEntry[K, V]),
		maxItems: maxItems,
		ttl:      ttl,
		now:      time.Now,
		head:     &cacheEntry[K, V]{},
		tail:     &cacheEntry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero V
	entry, ok := c.lookup(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	c.moveToFront(entry)
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	if c.maxItems <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.value = value
		entry.createdAt = c.now()
		c.moveToFront(entry)
		return
	}

	for len(c.entries) >= c.maxItems && c.tail.prev != c.head {
		lru := c.tail.prev
		c.remove(lru)
		atomic.AddInt64(&c.evictions, 1)
	}

	entry := &cacheEntry[K, V]{key: key, value: value, createdAt: c.now()}
	c.entries[key] = entry
	c.addToFront(entry)
}

// Update replaces a live entry with fn(old) and reports whether the entry
// existed. The TTL is not refreshed.
func (c *Cache[K, V]) Update(key K, fn func(V) V) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.lookup(key)
	if !ok {
		return false
	}
	entry.value = fn(entry.value)
	return true
}

// Delete drops key.
func (c *Cache[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.remove(entry)
	}
}

// Clear drops all entries and resets statistics.
func (c *Cache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[K]*cacheEntry[K, V])
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Stats returns the current counters.
func (c *Cache[K, V]) Stats() CacheStats {
	c.mutex.Lock()
	entries := len(c.entries)
	c.mutex.Unlock()

	return CacheStats{
		Entries:   entries,
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// lookup returns a live entry, dropping it if expired. Callers hold the lock.
func (c *Cache[K, V]) lookup(key K) (*cacheEntry[K, V], bool) {
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl {
		c.remove(entry)
		return nil, false
	}
	return entry, true
}

func (c *Cache[K, V]) remove(entry *cacheEntry[K, V]) {
	c.removeFromList(entry)
	delete(c.entries, entry.key)
}

// LRU doubly-linked list operations
func (c *Cache[K, V]) addToFront(entry *cacheEntry[K, V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *Cache[K, V]) removeFromList(entry *cacheEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *Cache[K, V]) moveToFront(entry *cacheEntry[K, V]) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
