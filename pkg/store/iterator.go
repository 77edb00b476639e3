package store

import "lsmdb/pkg/bytes"

// leafIterator is a bidirectional position over a snapshot of Leaf's live
// keys taken at factory time (Begin/End/Find/LowerBound/UpperBound). It
// does not wrap around at either end — same discipline as
// writecache.Cursor — since wraparound is a session-level behavior that a
// store sitting at the bottom of the stack never needs on its own.
type leafIterator struct {
	leaf *Leaf
	keys []bytes.Bytes
	pos  int // may be -1 (before-first) or len(keys) (past-last, i.e. end)
}

func (it *leafIterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.keys)
}

func (it *leafIterator) Key() bytes.Bytes {
	if !it.Valid() {
		return bytes.Invalid
	}
	return it.keys[it.pos]
}

func (it *leafIterator) Value() bytes.Bytes {
	if !it.Valid() {
		return bytes.Invalid
	}
	return it.leaf.Read(it.keys[it.pos])
}

func (it *leafIterator) Next() {
	if it.pos < len(it.keys) {
		it.pos++
	}
}

func (it *leafIterator) Prev() {
	if it.pos > -1 {
		it.pos--
	}
}

func (it *leafIterator) Close() error {
	return nil
}
