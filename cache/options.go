package cache

import "time"

// DefaultCleanupBatch is the number of entries a cleanup pass removes when
// Options.CleanupBatch is left unset.
const DefaultCleanupBatch = 20

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
// Calls are made while the cache lock is held, so implementations must not
// block and must never call back into the cache.
type Metrics interface {
	Hit()
	Miss()
	// Evict reports the number of entries removed by one cleanup pass.
	Evict(removed int)
	// Size reports the entry count after every mutation.
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. MaxSize must be positive; every
// other field has a sane default applied in New():
//   - CleanupBatch <= 0 => DefaultCleanupBatch
//   - nil Metrics       => NoopMetrics
//   - nil Clock         => time.Now()
type Options[V any] struct {
	// MaxSize is the entry count the cache aims to stay under. A Put that
	// finds the cache at or over MaxSize triggers a cleanup pass before
	// inserting.
	MaxSize int

	// CleanupBatch is how many entries one cleanup pass removes, least
	// recently accessed first. A pass is skipped while the cache holds fewer
	// than CleanupBatch entries, so configuring MaxSize < CleanupBatch lets
	// the cache exceed MaxSize until it has grown to CleanupBatch entries
	// (see the package documentation).
	CleanupBatch int

	// Observability
	// OnEvict is called for each removed entry under the cache lock;
	// keep callbacks lightweight.
	OnEvict func(key string, v V)
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}

// systemClock is the default Clock backed by time.Now.
type systemClock struct{}

func (systemClock) NowUnixNano() int64 { return time.Now().UnixNano() }
