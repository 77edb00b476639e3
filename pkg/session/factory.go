package session

import "lsmdb/pkg/bytes"

// findFirstNot walks cur forward via move, starting from cur's current
// position, until it lands on a key that isDeleted reports false for, or
// runs off the end (move returns nil), or wraps back past its own starting
// key (which signals the whole data source is exhausted of non-deleted
// keys). It returns bytes.Invalid in the latter two cases.
func findFirstNot(cur cursor, isDeleted func(bytes.Bytes) bool, move func(cursor) cursor) bytes.Bytes {
	if cur == nil || !cur.Valid() {
		return bytes.Invalid
	}

	beginningKey := cur.Key()
	pendingKey := beginningKey
	for {
		if !isDeleted(pendingKey) {
			return pendingKey
		}
		cur = move(cur)
		if cur == nil || !cur.Valid() {
			return bytes.Invalid
		}
		pendingKey = cur.Key()
		if !pendingKey.Greater(beginningKey) {
			return bytes.Invalid
		}
	}
}

func forwardMove(cur cursor) cursor {
	cur.Next()
	return cur
}

// jumpToEndMove is find's move: a deleted exact match is treated as "not
// found" outright rather than scanned past, matching the source's find
// behavior.
func jumpToEndMove(cursor) cursor {
	return nil
}

// lessComparator prefers the smaller of two valid keys; an invalid
// candidate never displaces a valid one.
func lessComparator(pending, current bytes.Bytes) bool {
	if !pending.IsValid() {
		return false
	}
	return pending.Less(current)
}

// greaterComparator is used by End's probe; in practice both sources'
// end-probes are already invalid before this is ever consulted.
func greaterComparator(pending, current bytes.Bytes) bool {
	if !pending.IsValid() {
		return false
	}
	return pending.Greater(current)
}

// findComparator mirrors the source's asymmetric comparator verbatim: it
// always prefers the write-cache's hit (pending/left) over the parent's hit
// (current/right) whenever the cache has a valid candidate at all, only
// falling back to the parent when the cache missed. This is the literal
// source behavior and is preserved despite spec.md's own prose describing
// it the other way around; see DESIGN.md.
func findComparator(pending, current bytes.Bytes) bool {
	if !pending.IsValid() && !current.IsValid() {
		return true
	}
	if !pending.IsValid() {
		return false
	}
	return true
}

// makeIterator is the single generic factory behind Begin/End/Find/
// LowerBound/UpperBound: it probes the parent and the write-cache with
// parentPos/cachePos respectively, picks the winning key with comparator,
// primes (or fully resolves, unless primeOnly) that key's iterator-cache
// node, and returns a SessionIterator positioned there (or at end).
func (s *Session) makeIterator(
	parentPos func(Parent) cursor,
	cachePos func(*Session) cursor,
	comparator func(pending, current bytes.Bytes) bool,
	move func(cursor) cursor,
	primeOnly bool,
) *SessionIterator {
	it := &SessionIterator{session: s}

	currentKey := bytes.Invalid
	if s.parent != nil {
		currentKey = findFirstNot(parentPos(s.parent), s.IsDeleted, move)
	}

	pendingKey := findFirstNot(cachePos(s), s.IsDeleted, move)

	if !currentKey.IsValid() || comparator(pendingKey, currentKey) {
		currentKey = pendingKey
	}

	if currentKey.IsValid() {
		s.updateIteratorCache(currentKey, icParams{recalculate: true, primeOnly: primeOnly})
		node := s.iterCache.find(currentKey)
		if node != nil && !node.state.deleted {
			it.node = node
		}
	}

	return it
}

func parentBegin(p Parent) cursor  { return p.Begin() }
func parentEnd(p Parent) cursor    { return p.End() }
func cacheBegin(s *Session) cursor { return s.cache.Begin() }
func cacheEnd(s *Session) cursor   { return s.cache.End() }

// Begin returns an iterator at the smallest non-deleted key visible through
// this session, or an invalid (end) iterator if the session is empty.
func (s *Session) Begin() Iterator {
	return s.makeIterator(parentBegin, cacheBegin, lessComparator, forwardMove, false)
}

// End returns the past-the-last-key sentinel iterator.
func (s *Session) End() Iterator {
	return s.makeIterator(parentEnd, cacheEnd, greaterComparator, func(c cursor) cursor { return c }, false)
}

// Find returns an iterator at key if it is present and not deleted,
// otherwise an invalid (end) iterator.
func (s *Session) Find(key bytes.Bytes) Iterator {
	return s.makeIterator(
		func(p Parent) cursor { return p.Find(key) },
		func(s *Session) cursor { return s.cache.Find(key) },
		findComparator,
		jumpToEndMove,
		false,
	)
}

// LowerBound returns an iterator at the first non-deleted key >= key.
func (s *Session) LowerBound(key bytes.Bytes) Iterator {
	return s.makeIterator(
		func(p Parent) cursor { return p.LowerBound(key) },
		func(s *Session) cursor { return s.cache.LowerBound(key) },
		lessComparator,
		forwardMove,
		false,
	)
}

// UpperBound returns an iterator at the first non-deleted key > key.
func (s *Session) UpperBound(key bytes.Bytes) Iterator {
	return s.makeIterator(
		func(p Parent) cursor { return p.UpperBound(key) },
		func(s *Session) cursor { return s.cache.UpperBound(key) },
		lessComparator,
		forwardMove,
		false,
	)
}

// bounds returns the largest key strictly less than key, and the smallest
// key strictly greater than key, as seen across the parent and write-cache
// together (bytes.Invalid for either side if there is no such key). It is
// the one place that probes both data sources with prime_only iterators to
// avoid reentering updateIteratorCache.
func (s *Session) bounds(key bytes.Bytes) (lower, upper bytes.Bytes) {
	// A lower_bound that is past the last key still has a predecessor: Prev
	// from the end position steps onto the last key.
	lowerParent := func(p Parent) cursor {
		it := p.LowerBound(key)
		begin := p.Begin()
		if it.Valid() && begin.Valid() && it.Key().Equal(begin.Key()) {
			return p.End()
		}
		it.Prev()
		return it
	}
	lowerCache := func(s *Session) cursor {
		it := s.cache.LowerBound(key)
		begin := s.cache.Begin()
		if it.Valid() && begin.Valid() && it.Key().Equal(begin.Key()) {
			return s.cache.End()
		}
		it.Prev()
		return it
	}
	upperParent := func(p Parent) cursor { return p.UpperBound(key) }
	upperCache := func(s *Session) cursor { return s.cache.UpperBound(key) }

	lowerIt := s.makeIterator(lowerParent, lowerCache, lessComparator, forwardMove, true)
	upperIt := s.makeIterator(upperParent, upperCache, lessComparator, forwardMove, true)
	endIt := s.makeIterator(parentEnd, cacheEnd, greaterComparator, func(c cursor) cursor { return c }, true)

	if !lowerIt.Equal(endIt) {
		lower = lowerIt.Key()
	}
	if !upperIt.Equal(endIt) {
		upper = upperIt.Key()
	}
	return lower, upper
}
