// Package cache provides a generic, bounded, concurrency-safe in-memory
// key/value store whose eviction runs in batches ordered by last access,
// with lightweight metrics hooks and an injectable clock.
//
// Design
//
//   - Concurrency: one mutex guards the whole cache. Reads are writes here —
//     every Get updates the entry's access count and last-access time — so an
//     RWMutex would buy nothing. The store is built for modest entry counts
//     (hundreds to low thousands) where a coarse lock is not a bottleneck.
//
//   - Storage: a plain map[string]*entry. Entries carry explicit metadata
//     (creation time, access count, last-access time) instead of living in an
//     intrusive recency list; recency is reconstructed when needed by sorting
//     the live entries on last-access time.
//
//   - Eviction: a Put that finds the cache at or over MaxSize runs a cleanup
//     pass before inserting. One pass sorts all entries by last-access time
//     and removes the oldest CleanupBatch of them, so evictions are amortized
//     across many inserts rather than paid one by one.
//
//   - The skip rule: a cleanup pass returns without removing anything while
//     the cache holds fewer than CleanupBatch entries. With
//     MaxSize >= CleanupBatch (the intended configuration) the bound holds
//     after every Put. A cache configured with MaxSize < CleanupBatch will
//     instead grow past MaxSize until it reaches CleanupBatch entries, at
//     which point the next Put collapses it to a single entry. Keep
//     MaxSize >= CleanupBatch when the bound matters.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter
//     (metrics/prom) to export metrics.
//
//   - Callbacks: Options.OnEvict(key, value) is called for every entry a
//     cleanup pass removes, under the cache lock.
//
//   - Clock: timestamps come from Options.Clock (time.Now by default), so
//     tests can drive the recency order deterministically.
//
// Basic usage
//
//	// Create a cache bounded at 100 entries, evicting 20 per cleanup pass.
//	c := cache.New[string](cache.Options[string]{
//	    MaxSize:      100,
//	    CleanupBatch: 20,
//	})
//	c.Put("a", "1")
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//
// Exporting metrics (Prometheus adapter)
//
//	m := prom.New(nil, "typify", "cache", prometheus.Labels{"cache": "grammar"})
//	c := cache.New[string](cache.Options[string]{
//	    MaxSize: 100,
//	    Metrics: m,
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Get, Put, Contains and
// Len are O(1) expected time outside cleanup passes; a cleanup pass is
// O(n log n) in the number of resident entries and runs at most once per
// CleanupBatch inserts at steady state.
package cache
