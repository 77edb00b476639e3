package session

import "lsmdb/pkg/bytes"

// SessionIterator is a bidirectional, deletion-skipping iterator over a
// Session's logical key space. A nil node means "at end"; stepping off
// either end rolls over to the other (Next past the last key lands on
// Begin, Prev past the first key lands on the key before End).
type SessionIterator struct {
	session *Session
	node    *icNode
}

// Valid reports whether the iterator is positioned on a real key.
func (it *SessionIterator) Valid() bool {
	return it.node != nil
}

// Key returns the current key, or bytes.Invalid at end.
func (it *SessionIterator) Key() bytes.Bytes {
	if it.node == nil {
		return bytes.Invalid
	}
	return it.node.key
}

// Value reads the current key's value through the owning session.
func (it *SessionIterator) Value() bytes.Bytes {
	if it.node == nil {
		return bytes.Invalid
	}
	return it.session.Read(it.node.key)
}

// Deleted reports whether the current position is a tombstone. A valid
// SessionIterator is never positioned on a tombstone (the factory and the
// move functions both skip them), so this is mostly useful for diagnostics.
func (it *SessionIterator) Deleted() bool {
	return it.node != nil && it.node.state.deleted
}

// Close is a no-op; SessionIterator holds no resources of its own.
func (it *SessionIterator) Close() error {
	return nil
}

// Equal reports whether it and other are at the same position: both at
// end, or both on the same key.
func (it *SessionIterator) Equal(other *SessionIterator) bool {
	if it.node == nil && other.node == nil {
		return true
	}
	if it.node == nil || other.node == nil {
		return false
	}
	return it.node.key.Equal(other.node.key)
}

// Next advances to the next non-deleted key, rolling over to Begin if it
// was already at, or steps off, End.
func (it *SessionIterator) Next() {
	if it.node != nil {
		it.advance()
	}
	if it.node == nil {
		it.node = it.session.iterCache.first()
		if it.node != nil && it.node.state.deleted {
			it.advance()
		}
	}
}

// advance performs the core forward deletion-skipping walk, landing on nil
// (end) if the walk runs off the known cache without finding a live key.
func (it *SessionIterator) advance() {
	for it.node != nil {
		if !it.node.state.nextInCache {
			it.session.updateIteratorCache(it.node.key, icParams{recalculate: true})
			if !it.node.state.nextInCache {
				it.node = nil
				return
			}
		}
		it.node = it.node.next()
		if it.node == nil || !it.node.state.deleted {
			return
		}
	}
}

// Prev retreats to the previous non-deleted key. Stepping back from Begin
// (rather than from a true End obtained via End()) rolls over to the last
// key instead of underflowing, matching spec's documented symmetric
// rollover; see DESIGN.md for how this departs from the literal source.
func (it *SessionIterator) Prev() {
	if it.node != nil && it.session.iterCache.isBegin(it.node) {
		it.node = nil
	}
	it.retreat()
}

// retreat performs the core backward deletion-skipping walk. A nil node at
// entry is treated as "one past the last key" and steps onto Last.
func (it *SessionIterator) retreat() {
	for {
		if it.node == nil {
			it.node = it.session.iterCache.last()
			if it.node == nil || !it.node.state.deleted {
				return
			}
			continue
		}

		if !it.node.state.previousInCache {
			it.session.updateIteratorCache(it.node.key, icParams{recalculate: true})
			if !it.node.state.previousInCache {
				it.node = nil
				return
			}
		}
		it.node = it.node.prev()
		if it.node == nil || !it.node.state.deleted {
			return
		}
	}
}
