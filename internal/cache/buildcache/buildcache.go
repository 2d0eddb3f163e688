// Package buildcache keeps recent build results keyed by content digest.
package buildcache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 64
	DefaultTTL  = 10 * time.Minute
)

type entry[V any] struct {
	value V
	size  int
}

// Cache is a threadsafe LRU with a per-entry TTL and an optional byte budget.
// A nil *Cache is a valid, always-missing cache.
type Cache[V any] struct {
	mu         sync.Mutex
	lru        *expirable.LRU[string, entry[V]]
	maxBytes   int
	totalBytes atomic.Int64
}

func New[V any](maxEntries, maxBytes int, ttl time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[V]{maxBytes: maxBytes}
	// The eviction callback also runs from the expiry goroutine.
	c.lru = expirable.NewLRU[string, entry[V]](maxEntries, func(_ string, e entry[V]) {
		c.totalBytes.Add(-int64(e.size))
	}, ttl)
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. Entries larger than the byte budget are not
// stored at all.
func (c *Cache[V]) Set(key string, value V, sizeBytes int) {
	if c == nil {
		return
	}
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	if c.maxBytes > 0 && sizeBytes > c.maxBytes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
	c.lru.Add(key, entry[V]{value: value, size: sizeBytes})
	c.totalBytes.Add(int64(sizeBytes))
	for c.maxBytes > 0 && c.totalBytes.Load() > int64(c.maxBytes) {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

func (c *Cache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache[V]) Bytes() int {
	if c == nil {
		return 0
	}
	return int(c.totalBytes.Load())
}

func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
