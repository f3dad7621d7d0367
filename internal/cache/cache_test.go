package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetRespectsTTL(t *testing.T) {
	t.Parallel()
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1, 50*time.Millisecond)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestGetStaleIgnoresStoredTTL(t *testing.T) {
	t.Parallel()
	c := New[string, string](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)

	got, ok := c.GetStale("a", time.Second)
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.GetStale("a", 10*time.Millisecond)
	assert.False(t, ok)
}

func TestDeleteAndSize(t *testing.T) {
	t.Parallel()
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	assert.Equal(t, 2, c.Size())

	c.Delete("a")
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestJanitorEvictsPastStaleWindow(t *testing.T) {
	t.Parallel()
	c := New[string, int](30*time.Millisecond, 10*time.Millisecond)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 10*time.Millisecond)
}
