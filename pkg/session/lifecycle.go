package session

import "lsmdb/pkg/bytes"

// Attach connects this session to parent and primes the iterator cache
// from parent's current bounds, discarding any locally cached values that
// are not this session's own buffered writes (they may be stale against
// the new parent).
func (s *Session) Attach(parent Parent) {
	s.parent = parent
	s.primeCache()
}

// Detach disconnects this session from its parent without discarding any
// buffered writes/tombstones. A detached session behaves as a standalone
// store over just its own buffered state.
func (s *Session) Detach() {
	s.parent = nil
}

// Undo discards every buffered write and tombstone and detaches, as if the
// session had just been constructed.
func (s *Session) Undo() {
	s.Detach()
	s.Clear()
}

// Commit writes every buffered write through to the parent (erasing every
// buffered tombstone first) and then clears local state. A session with no
// parent, or with nothing buffered, is a no-op.
func (s *Session) Commit() {
	if s.parent == nil {
		return
	}
	if len(s.updatedKeys) == 0 && len(s.deletedKeys) == 0 {
		return
	}

	for k := range s.deletedKeys {
		s.parent.Erase(k)
	}
	for k := range s.updatedKeys {
		s.parent.Write(k, s.cache.Read(k))
	}

	s.Clear()
}

// Close is the Go stand-in for the source's destructor. An attached
// session always flushes on Close: it calls Commit, then Undo. A caller
// that wants to discard buffered state instead of flushing it must call
// Undo (or Detach) explicitly before Close — Go has no implicit
// destructor to make that decision for the caller.
func (s *Session) Close() error {
	s.Commit()
	s.Undo()
	return nil
}

// primeCache clears the iterator cache and reseeds it with just the
// parent's current first and last keys, and drops any cached value that
// is not one of this session's own pending writes.
func (s *Session) primeCache() {
	s.iterCache.clear()

	var stale []bytes.Bytes
	s.cache.Range(func(k, v bytes.Bytes) bool {
		if _, ok := s.updatedKeys[k]; !ok {
			stale = append(stale, k)
		}
		return true
	})
	s.cache.EraseSet(stale)

	if s.parent == nil {
		return
	}

	begin := s.parent.Begin()
	if begin.Valid() {
		s.iterCache.getOrInsert(begin.Key())
	}

	end := s.parent.End()
	end.Prev()
	if end.Valid() {
		s.iterCache.getOrInsert(end.Key())
	}
}
