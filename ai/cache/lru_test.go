package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheBasic(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.Set("a", 1, 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok, "missing key should miss")
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.Set("a", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok, "expired entry must be treated as a miss")
	assert.Equal(t, 0, c.Size(), "expired entry should be removed on read")
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Get("a") // refresh a
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok, "recently used entry should survive eviction")
}

func TestLRUCacheInvalidatePattern(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.Set("math:l1", 1, 0)
	c.Set("math:l2", 2, 0)
	c.Set("science:l1", 3, 0)

	assert.Equal(t, 2, c.Invalidate("math:*"))
	_, ok := c.Get("science:l1")
	assert.True(t, ok, "non-matching entry must survive")

	assert.Equal(t, 1, c.Invalidate("science:l1"), "exact key invalidation")
}

func TestLRUCacheCleanupExpired(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.Set("a", 1, 10*time.Millisecond)
	c.Set("b", 2, time.Minute)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, c.CleanupExpired())
	assert.Equal(t, 1, c.Size())
}
