package respcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestShouldCacheExcludesNon2xx is property P3 (spec.md §8).
func TestShouldCacheExcludesNon2xx(t *testing.T) {
	c := New(true, 10, time.Minute, 0)
	assert.False(t, c.ShouldCache(404, false, 10))
	assert.False(t, c.ShouldCache(500, false, 10))
	assert.True(t, c.ShouldCache(200, false, 10))
}

func TestShouldCacheExcludesStreaming(t *testing.T) {
	c := New(true, 10, time.Minute, 0)
	assert.False(t, c.ShouldCache(200, true, 10))
}

func TestShouldCacheRespectsDisabled(t *testing.T) {
	c := New(false, 10, time.Minute, 0)
	assert.False(t, c.ShouldCache(200, false, 10))
}

func TestShouldCacheRejectsOversizedBody(t *testing.T) {
	c := New(true, 10, time.Minute, 100)
	assert.False(t, c.ShouldCache(200, false, 200))
}

func TestSetGetRoundTrip(t *testing.T) {
	c := New(true, 10, time.Minute, 0)
	c.Set("k1", 200, "application/json", []byte(`{"ok":true}`))

	entry, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, 200, entry.StatusCode)
	assert.Equal(t, 1, entry.HitCount)
}

func TestGetExpiredEvicts(t *testing.T) {
	c := New(true, 10, time.Millisecond, 0)
	c.Set("k1", 200, "application/json", []byte("x"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.GetStats().Size)
}

func TestCapacityEvictsLRU(t *testing.T) {
	c := New(true, 2, time.Minute, 0)
	c.Set("a", 200, "", []byte("a"))
	c.Set("b", 200, "", []byte("b"))
	c.Get("a") // touch a, making b the LRU victim
	c.Set("c", 200, "", []byte("c"))

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	assert.True(t, aOK)
	assert.False(t, bOK)
	assert.True(t, cOK)
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(true, 10, time.Minute, 0)
	c.Set("a", 200, "", []byte("a"))
	c.Clear()
	assert.Equal(t, 0, c.GetStats().Size)
}

func TestEvict(t *testing.T) {
	c := New(true, 10, time.Minute, 0)
	c.Set("a", 200, "", []byte("a"))
	c.Evict("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}
