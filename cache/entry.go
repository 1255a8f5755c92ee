package cache

// entry is a stored value together with its bookkeeping metadata.
// Metadata is only ever read or written while the cache lock is held.
type entry[V any] struct {
	value V

	// Creation and last-access times in UnixNano. lastAccess starts equal
	// to created and is refreshed on every read; cleanup orders entries by
	// it, oldest first.
	created    int64
	lastAccess int64

	// Number of reads served from this entry. Put always installs a fresh
	// entry, so replacing a key resets the counter.
	accessCount int64
}

// newEntry returns a fresh entry created at now.
func newEntry[V any](v V, now int64) *entry[V] {
	return &entry[V]{value: v, created: now, lastAccess: now}
}

// touch records a read at now and returns the value.
func (e *entry[V]) touch(now int64) V {
	e.accessCount++
	e.lastAccess = now
	return e.value
}
