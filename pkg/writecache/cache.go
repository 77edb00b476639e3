// Package writecache implements the write-cache contract: an unordered
// lookup that also supports ordered, bidirectional iteration over its keys.
// It backs a session's local overlay of written and read-through values.
package writecache

import (
	"slices"

	"lsmdb/pkg/bytes"
)

type entry struct {
	key bytes.Bytes
	val bytes.Bytes
}

// Cache is a key-ordered map from bytes.Bytes to bytes.Bytes.
//
// The underlying structure is a key-sorted slice searched with
// slices.BinarySearch, the same idiom used for in-memory B+-tree leaf nodes
// elsewhere in this codebase's lineage: it gives O(log n) seeks and true
// bidirectional cursors, which an unordered or forward-only map cannot.
type Cache struct {
	entries []entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

func (c *Cache) search(k bytes.Bytes) (int, bool) {
	return slices.BinarySearchFunc(c.entries, k, func(e entry, k bytes.Bytes) int {
		return e.key.Compare(k)
	})
}

// Read returns the value stored for k, or bytes.Invalid if absent.
func (c *Cache) Read(k bytes.Bytes) bytes.Bytes {
	idx, ok := c.search(k)
	if !ok {
		return bytes.Invalid
	}
	return c.entries[idx].val
}

// Write inserts or overwrites k's value.
func (c *Cache) Write(k, v bytes.Bytes) {
	idx, ok := c.search(k)
	if ok {
		c.entries[idx].val = v
		return
	}
	c.entries = slices.Insert(c.entries, idx, entry{key: k, val: v})
}

// Erase removes k if present.
func (c *Cache) Erase(k bytes.Bytes) {
	idx, ok := c.search(k)
	if !ok {
		return
	}
	c.entries = slices.Delete(c.entries, idx, idx+1)
}

// EraseSet removes every key in keys.
func (c *Cache) EraseSet(keys []bytes.Bytes) {
	for _, k := range keys {
		c.Erase(k)
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.entries = nil
}

// Range calls fn for every entry in ascending key order, stopping early if
// fn returns false.
func (c *Cache) Range(fn func(k, v bytes.Bytes) bool) {
	for _, e := range c.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}

// WriteTo copies the entries named by keys into dst.
func (c *Cache) WriteTo(dst interface{ Write(k, v bytes.Bytes) }, keys []bytes.Bytes) {
	for _, k := range keys {
		v := c.Read(k)
		if v.IsValid() {
			dst.Write(k, v)
		}
	}
}

// Cursor is a bidirectional position within a Cache's sorted entries. It
// behaves like a standard-library ordered-map iterator: Next/Prev step one
// entry, Valid reports whether the cursor is on a real entry, and a cursor
// that steps past either end becomes invalid without wrapping (wraparound
// is a session-level, not a cache-level, behavior).
type Cursor struct {
	c   *Cache
	idx int // may be -1 (before-first) or len(entries) (past-last, i.e. end)
}

// Valid reports whether the cursor is positioned on an entry.
func (cur *Cursor) Valid() bool {
	return cur.idx >= 0 && cur.idx < len(cur.c.entries)
}

// Key returns the current entry's key. Panics if !Valid(); callers must
// check Valid first, matching the end-sentinel discipline used throughout
// this codebase's iterators.
func (cur *Cursor) Key() bytes.Bytes {
	return cur.c.entries[cur.idx].key
}

// Value returns the current entry's value.
func (cur *Cursor) Value() bytes.Bytes {
	return cur.c.entries[cur.idx].val
}

// Next advances the cursor by one entry.
func (cur *Cursor) Next() {
	if cur.idx < len(cur.c.entries) {
		cur.idx++
	}
}

// Prev retreats the cursor by one entry.
func (cur *Cursor) Prev() {
	if cur.idx > -1 {
		cur.idx--
	}
}

// Begin returns a cursor at the smallest key, or an end cursor if empty.
func (c *Cache) Begin() *Cursor {
	return &Cursor{c: c, idx: 0}
}

// End returns a past-the-last-entry cursor.
func (c *Cache) End() *Cursor {
	return &Cursor{c: c, idx: len(c.entries)}
}

// Find returns a cursor at k, or an end cursor if k is absent.
func (c *Cache) Find(k bytes.Bytes) *Cursor {
	idx, ok := c.search(k)
	if !ok {
		return c.End()
	}
	return &Cursor{c: c, idx: idx}
}

// LowerBound returns a cursor at the first key >= k.
func (c *Cache) LowerBound(k bytes.Bytes) *Cursor {
	idx, _ := c.search(k)
	return &Cursor{c: c, idx: idx}
}

// UpperBound returns a cursor at the first key > k.
func (c *Cache) UpperBound(k bytes.Bytes) *Cursor {
	idx, ok := c.search(k)
	if ok {
		idx++
	}
	return &Cursor{c: c, idx: idx}
}
