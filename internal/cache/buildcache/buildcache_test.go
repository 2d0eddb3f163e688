package buildcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](2, 0, time.Minute)
	c.Set("a", "A", 1)
	c.Set("b", "B", 1)
	_, _ = c.Get("a")
	c.Set("c", "C", 1)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)
	assert.Equal(t, 2, c.Len())
}

func TestCacheByteBudget(t *testing.T) {
	c := New[string](10, 10, time.Minute)
	c.Set("a", "A", 6)
	c.Set("b", "B", 6)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 6, c.Bytes())

	c.Set("huge", "H", 11)
	_, ok = c.Get("huge")
	assert.False(t, ok)

	c.Set("b", "B2", 3)
	assert.Equal(t, 3, c.Bytes())
}

func TestCacheExpires(t *testing.T) {
	c := New[int](4, 0, 20*time.Millisecond)
	c.Set("k", 1, 0)
	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNilCache(t *testing.T) {
	var c *Cache[int]
	c.Set("k", 1, 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
