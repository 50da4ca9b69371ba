package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, config Config) *Cache {
	t.Helper()
	c := New(config)
	t.Cleanup(c.Close)
	return c
}

func TestCache_BasicOperations(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set(ctx, "key1", "value1", 0)

		val, ok := c.Get(ctx, "key1")
		assert.True(t, ok)
		assert.Equal(t, "value1", val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := c.Get(ctx, "nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		c.Set(ctx, "key2", "original", 0)
		c.Set(ctx, "key2", "updated", 0)

		val, ok := c.Get(ctx, "key2")
		assert.True(t, ok)
		assert.Equal(t, "updated", val)
	})
}

func TestCache_Expiration(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	c.Set(ctx, "expiring", "value", 50*time.Millisecond)

	val, ok := c.Get(ctx, "expiring")
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	time.Sleep(60 * time.Millisecond)

	val, ok = c.Get(ctx, "expiring")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestCache_EpochInvalidation(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)

	before := c.Epoch()
	after := c.InvalidateAll()
	assert.Equal(t, before+1, after)

	// Every pre-bump entry misses, regardless of its TTL.
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)

	// Entries stored after the bump are served normally.
	c.Set(ctx, "a", 3, 0)
	val, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 3, val)
}

func TestCache_AdvanceTo(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	assert.True(t, c.AdvanceTo(10))
	assert.Equal(t, int64(10), c.Epoch())

	// Never goes backwards.
	assert.False(t, c.AdvanceTo(5))
	assert.Equal(t, int64(10), c.Epoch())
}

func TestCache_SetAtEpoch(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	observed := c.Epoch()
	c.InvalidateAll()

	// A write stamped with a retired epoch is never served.
	c.SetAtEpoch(ctx, "stale", "old view", 0, observed)
	_, ok := c.Get(ctx, "stale")
	assert.False(t, ok)

	c.SetAtEpoch(ctx, "fresh", "current view", 0, c.Epoch())
	val, ok := c.Get(ctx, "fresh")
	assert.True(t, ok)
	assert.Equal(t, "current view", val)
}

func TestCache_EvictExpired(t *testing.T) {
	config := DefaultConfig()
	config.CleanupInterval = time.Hour // keep the sweep out of the way
	c := newTestCache(t, config)
	ctx := context.Background()

	c.Set(ctx, "short", 1, 10*time.Millisecond)
	c.Set(ctx, "long", 2, time.Hour)
	time.Sleep(20 * time.Millisecond)

	removed := c.EvictExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Size())

	// A bump turns every remaining entry into sweepable garbage.
	c.InvalidateAll()
	removed = c.EvictExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Size())
}

func TestCache_CapacityEviction(t *testing.T) {
	config := DefaultConfig()
	config.MaxItems = 3
	c := newTestCache(t, config)
	ctx := context.Background()

	c.Set(ctx, "k1", 1, 0)
	c.Set(ctx, "k2", 2, 0)
	c.Set(ctx, "k3", 3, 0)
	require.Equal(t, 3, c.Size())

	// Oldest-inserted goes first.
	c.Set(ctx, "k4", 4, 0)
	assert.Equal(t, 3, c.Size())
	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "k4")
	assert.True(t, ok)
}

func TestCache_Disabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false
	c := newTestCache(t, config)
	ctx := context.Background()

	c.Set(ctx, "key", "value", 0)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set(ctx, "shared", n, 0)
				c.Get(ctx, "shared")
				if j%50 == 0 {
					c.InvalidateAll()
				}
			}
		}(i)
	}
	wg.Wait()

	// After the dust settles, a fresh write is readable.
	c.Set(ctx, "final", "ok", 0)
	val, ok := c.Get(ctx, "final")
	assert.True(t, ok)
	assert.Equal(t, "ok", val)
}
