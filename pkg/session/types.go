// Package session implements the transactional overlay engine: a layered,
// chainable key-value session that buffers reads, writes, and deletions
// over a parent (another session, or a terminal persistent store), and can
// be committed (written through to the parent) or rolled back (discarded)
// atomically.
package session

import (
	"lsmdb/pkg/bytes"
	"lsmdb/pkg/writecache"
)

// Iterator is the bidirectional, key-ordered iterator produced by the
// factory methods of both a Session and a terminal Parent (leaf store).
// Dereferencing past either end yields (Invalid, Invalid) rather than
// panicking; callers check Valid.
type Iterator interface {
	Valid() bool
	Key() bytes.Bytes
	Value() bytes.Bytes
	Next()
	Prev()
	Close() error
}

// Parent is satisfied by both a terminal leaf store and another Session. It
// is the contract a Session stacks on top of, and the contract a Session
// itself offers to any session stacked on top of it.
type Parent interface {
	Read(k bytes.Bytes) bytes.Bytes
	Write(k, v bytes.Bytes)
	Erase(k bytes.Bytes)
	Contains(k bytes.Bytes) bool
	IsDeleted(k bytes.Bytes) bool

	Begin() Iterator
	End() Iterator
	Find(k bytes.Bytes) Iterator
	LowerBound(k bytes.Bytes) Iterator
	UpperBound(k bytes.Bytes) Iterator
}

// cursor is the minimal surface the iterator factory needs from either a
// Parent's Iterator or a writecache.Cursor: enough to scan and test
// deletion without requiring Value()/Close().
type cursor interface {
	Valid() bool
	Key() bytes.Bytes
	Next()
	Prev()
}

// KV is a single key/value pair, used by the batch Read variant to report
// the keys that were found.
type KV struct {
	Key   bytes.Bytes
	Value bytes.Bytes
}

// Session is one layer of buffered writes/erases over a Parent.
//
// The zero value is not usable; construct with New or NewAttached.
type Session struct {
	parent Parent

	// cache holds values written locally and values lazily pulled from the
	// parent during reads. It never holds a key also present in
	// deletedKeys, and every key in updatedKeys is present in it.
	cache *writecache.Cache

	// iterCache accelerates in-order traversal; it holds hints, not values.
	iterCache *iteratorCache

	// updatedKeys and deletedKeys are the authoritative write/tombstone
	// sets for Commit, and are disjoint by construction.
	updatedKeys map[bytes.Bytes]struct{}
	deletedKeys map[bytes.Bytes]struct{}
}

// New returns a detached session with no parent and no buffered state.
func New() *Session {
	return &Session{
		cache:       writecache.New(),
		iterCache:   newIteratorCache(),
		updatedKeys: make(map[bytes.Bytes]struct{}),
		deletedKeys: make(map[bytes.Bytes]struct{}),
	}
}

// Invalid returns a detached, empty session, usable as a safe placeholder
// value before a real parent is known. It mirrors the source's static
// `session::invalid` member; Go has no equivalent static const, so this is
// a constructor instead.
func Invalid() *Session {
	return New()
}

// NewAttached returns a session attached to parent, with its iterator cache
// primed from parent's current bounds.
func NewAttached(parent Parent) *Session {
	s := New()
	s.Attach(parent)
	return s
}
