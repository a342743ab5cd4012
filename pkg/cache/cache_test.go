package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGetDelete(t *testing.T) {
	c := New[uint, string](Options{TTL: time.Minute})
	defer c.Close()

	c.Set(1, "first")
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "first", v)

	c.Delete(1)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New[string, int](Options{})
	defer c.Close()

	c.SetWithExpiration("short", 1, time.Millisecond)
	c.Set("forever", 2)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	c.deleteExpired()
	assert.Equal(t, 1, c.Count())
}

func TestCacheMaxItemsEvicts(t *testing.T) {
	c := New[int, int](Options{TTL: time.Minute, MaxItems: 2})
	defer c.Close()

	var evicted []int
	c.SetOnEvicted(func(k, _ int) { evicted = append(evicted, k) })

	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)

	assert.Equal(t, 2, c.Count())
	assert.Len(t, evicted, 1)

	// Overwriting an existing key never evicts.
	c.Set(3, 30)
	assert.Equal(t, 2, c.Count())
	assert.Len(t, evicted, 1)
}
