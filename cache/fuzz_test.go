//go:build go1.18

package cache

import (
	"strconv"
	"strings"
	"testing"
)

// Fuzz Put/Get/Contains under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: We cap key/value lengths to avoid pathological memory usage
// during fuzzing (this does not weaken the invariants we check).
func FuzzCache_PutGet(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "")
	f.Add("a", "1")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12 // 4096
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c := New[string](Options[string]{MaxSize: 16, CleanupBatch: 4})

		// Put -> Get must return the same value.
		c.Put(k, v)
		got, ok := c.Get(k)
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}
		if !c.Contains(k) {
			t.Fatalf("Contains must see the key")
		}

		// Overwrite must win.
		c.Put(k, v+"*")
		if got2, ok := c.Get(k); !ok || got2 != v+"*" {
			t.Fatalf("after overwrite: want %q, got %q ok=%v", v+"*", got2, ok)
		}

		// Clear must empty the cache.
		c.Clear()
		if c.Len() != 0 {
			t.Fatalf("Len after Clear: %d", c.Len())
		}
		if _, ok := c.Get(k); ok {
			t.Fatalf("key must be absent after Clear")
		}
	})
}

// Fuzz an operation stream against a shadow map: a hit must always return the
// most recently written value for the key (eviction may drop entries but must
// never corrupt them), and the size bound must hold.
func FuzzCache_Stream(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	f.Add([]byte("put-get-put-get"))
	f.Add([]byte{255, 0, 255, 0, 9, 9, 9, 9, 1, 2})

	f.Fuzz(func(t *testing.T, data []byte) {
		clk := &fakeClock{}
		c := New[string](Options[string]{MaxSize: 8, CleanupBatch: 4, Clock: clk})
		shadow := make(map[string]string)

		for i := 0; i+1 < len(data); i += 2 {
			k := "k" + strconv.Itoa(int(data[i]%16))
			clk.add(1)
			switch data[i+1] % 4 {
			case 0, 1: // Put
				v := "v" + strconv.Itoa(i)
				c.Put(k, v)
				shadow[k] = v
			case 2: // Get
				if v, ok := c.Get(k); ok && v != shadow[k] {
					t.Fatalf("hit for %s returned %q, shadow has %q", k, v, shadow[k])
				}
			case 3: // Contains
				if c.Contains(k) && shadow[k] == "" {
					t.Fatalf("cache holds %s the shadow never saw", k)
				}
			}
			if n := c.Len(); n > 8 {
				t.Fatalf("Len %d exceeds MaxSize", n)
			}
		}
	})
}
