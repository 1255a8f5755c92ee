package cache

import (
	"sort"
	"sync"
)

// Cache is a bounded in-memory KV store with batch eviction ordered by last
// access. All methods are safe for concurrent use by multiple goroutines.
//
// A single mutex guards the whole cache: reads update entry metadata (access
// count, last-access time), so there is no read/write lock split.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]

	maxSize      int
	cleanupBatch int
	onEvict      func(key string, v V)
	metrics      Metrics
	clock        Clock
}

// New constructs a Cache with the provided Options.
// Defaults:
//   - nil Metrics       -> NoopMetrics
//   - nil Clock         -> time.Now()
//   - CleanupBatch <= 0 -> DefaultCleanupBatch
//
// New panics if MaxSize is not positive.
func New[V any](opt Options[V]) *Cache[V] {
	if opt.MaxSize <= 0 {
		panic("MaxSize must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Clock == nil {
		opt.Clock = systemClock{}
	}
	batch := opt.CleanupBatch
	if batch <= 0 {
		batch = DefaultCleanupBatch
	}

	return &Cache[V]{
		entries:      make(map[string]*entry[V]),
		maxSize:      opt.MaxSize,
		cleanupBatch: batch,
		onEvict:      opt.OnEvict,
		metrics:      opt.Metrics,
		clock:        opt.Clock,
	}
}

// ---- core operations ----

// Get returns the value for key and a presence flag.
// A hit counts as an access: it bumps the entry's access count and refreshes
// its last-access time. A miss inserts nothing.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.Miss()
		var zero V
		return zero, false
	}
	c.metrics.Hit()
	return e.touch(c.clock.NowUnixNano()), true
}

// Put inserts or replaces the value for key. When the cache already holds
// MaxSize or more entries, a cleanup pass runs first, then the new entry is
// inserted. Replacing an existing key installs a fresh entry: creation and
// last-access times reset to now and the access count to zero.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.cleanup()
	}
	c.entries[key] = newEntry(v, c.clock.NowUnixNano())
	c.metrics.Size(len(c.entries))
}

// Contains reports whether key is present without counting an access:
// entry metadata stays untouched.
func (c *Cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of resident entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MaxSize returns the configured entry limit.
func (c *Cache[V]) MaxSize() int { return c.maxSize }

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.metrics.Size(0)
}

// ---- eviction ----

// cleanup removes the cleanupBatch least recently accessed entries in one
// pass. The pass is skipped while the cache holds fewer than cleanupBatch
// entries, so a cache with MaxSize < CleanupBatch can exceed MaxSize until
// it has grown to CleanupBatch entries. Caller must hold c.mu.
func (c *Cache[V]) cleanup() {
	if len(c.entries) < c.cleanupBatch {
		return
	}

	type aged struct {
		key  string
		last int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, last: e.lastAccess})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].last < all[j].last })

	for _, a := range all[:c.cleanupBatch] {
		e := c.entries[a.key]
		delete(c.entries, a.key)
		if c.onEvict != nil {
			c.onEvict(a.key, e.value)
		}
	}
	c.metrics.Evict(c.cleanupBatch)
}
