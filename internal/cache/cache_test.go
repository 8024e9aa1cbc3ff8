package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSet(t *testing.T) {
	c := New[int]()

	_, ok := c.Get("a", time.Hour)
	assert.False(t, ok)

	c.Set("a", 42)
	v, ok := c.Get("a", time.Hour)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestExpiry(t *testing.T) {
	c := New[string]()
	c.Set("a", "x")

	// a zero TTL means everything is already stale
	_, ok := c.Get("a", 0)
	assert.False(t, ok)

	// but the entry is still there for a longer TTL
	_, ok = c.Get("a", time.Hour)
	assert.True(t, ok)
}

func TestPurge(t *testing.T) {
	c := New[string]()
	c.Set("a", "x")
	c.Set("b", "y")

	assert.Equal(t, 0, c.Purge(time.Hour))
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 2, c.Purge(0))
	assert.Equal(t, 0, c.Len())
}

func TestFlush(t *testing.T) {
	c := New[string]()
	c.Set("a", "x")
	c.Flush()
	assert.Equal(t, 0, c.Len())
}
