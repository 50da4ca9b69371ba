// Package cache implements the query response cache: a process-local
// key/value store with per-entry expiry and a global epoch counter.
//
// Invalidation is coarse and lazy: bumping the epoch is O(1) and makes
// every existing entry unreachable on its next lookup. Stale entries are
// reclaimed by the periodic cleanup loop or by capacity eviction, never
// returned to a reader.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config configures the cache.
type Config struct {
	// Enabled toggles the cache. When false, Get always misses and Set is
	// a no-op, so callers behave identically with or without caching.
	Enabled bool
	// DefaultTTL is used when Set is called with a non-positive ttl.
	DefaultTTL time.Duration
	// CleanupInterval is the period of the expired-entry sweep.
	CleanupInterval time.Duration
	// MaxItems bounds the number of entries. When full, oldest-inserted
	// entries are evicted first.
	MaxItems int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
		MaxItems:        1000,
	}
}

type entry struct {
	key       string
	value     any
	createdAt time.Time
	expiresAt time.Time
	epoch     int64
	element   *list.Element
}

// Cache is an epoch-invalidated TTL cache.
type Cache struct {
	config Config

	// epoch strictly increases on every content mutation. An entry is
	// served only if its stamped epoch equals the current one.
	epoch atomic.Int64

	mu      sync.RWMutex
	entries map[string]*entry
	order   *list.List // insertion order, oldest at the back

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new cache and starts its cleanup loop.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		config:  config,
		entries: make(map[string]*entry),
		order:   list.New(),
		ctx:     ctx,
		cancel:  cancel,
	}

	if config.Enabled {
		c.wg.Add(1)
		go c.cleanupLoop()
	}

	return c
}

// Close stops the cleanup loop.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// Enabled reports whether caching is turned on.
func (c *Cache) Enabled() bool {
	return c.config.Enabled
}

// Get retrieves a value. An entry is valid only if it has not expired and
// was stored under the current epoch; anything else is a miss.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	if ok {
		// Read the entry fields under the lock so a concurrent Set of the
		// same key cannot produce a torn read.
		value, expiresAt, epoch := e.value, e.expiresAt, e.epoch
		c.mu.RUnlock()
		if time.Now().Before(expiresAt) && epoch == c.epoch.Load() {
			return value, true
		}
		// Expired or stamped with an older epoch. Reclaim eagerly.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur == e {
			c.removeEntry(e)
		}
		c.mu.Unlock()
		return nil, false
	}
	c.mu.RUnlock()
	return nil, false
}

// Set stores a value stamped with the current epoch. A non-positive ttl
// falls back to the configured default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	c.SetAtEpoch(ctx, key, value, ttl, c.epoch.Load())
}

// SetAtEpoch stores a value stamped with the epoch the caller observed
// before computing it. If the epoch has moved on since, the write is a
// no-op; even when the bump races past the check, the entry carries the
// retired epoch and Get will never serve it. This is what keeps a slow
// read's write-back from masking a concurrent mutation.
func (c *Cache) SetAtEpoch(_ context.Context, key string, value any, ttl time.Duration, epoch int64) {
	if !c.config.Enabled {
		return
	}
	if c.epoch.Load() != epoch {
		return
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(ttl)
		e.epoch = epoch
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.config.MaxItems {
		c.evictOldestLocked()
	}

	e := &entry{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
		epoch:     epoch,
	}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// InvalidateAll makes every existing entry unreachable by bumping the
// epoch. O(1); entries are reclaimed lazily. Returns the new epoch.
func (c *Cache) InvalidateAll() int64 {
	return c.epoch.Add(1)
}

// Epoch returns the current epoch.
func (c *Cache) Epoch() int64 {
	return c.epoch.Load()
}

// AdvanceTo raises the epoch to at least target and reports whether it
// moved. Used by the cross-process synchronizer; the epoch never goes
// backwards.
func (c *Cache) AdvanceTo(target int64) bool {
	for {
		cur := c.epoch.Load()
		if cur >= target {
			return false
		}
		if c.epoch.CompareAndSwap(cur, target) {
			return true
		}
	}
}

// EvictExpired removes entries that have expired or were stamped with an
// older epoch. Returns the number of entries removed.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	epoch := c.epoch.Load()

	var toDelete []*entry
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) || e.epoch != epoch {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		c.removeEntry(e)
	}
	return len(toDelete)
}

// Size returns the number of entries in the cache, including ones not yet
// reclaimed by the sweep.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
}

func (c *Cache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.EvictExpired()
		}
	}
}

// evictOldestLocked removes the oldest-inserted entry. Must be called with
// the lock held.
func (c *Cache) evictOldestLocked() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry))
}

// removeEntry removes an entry. Must be called with the lock held.
func (c *Cache) removeEntry(e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}
