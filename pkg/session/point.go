package session

import "lsmdb/pkg/bytes"

// Read returns key's value: a local write-cache hit, a tombstone (reports
// Invalid), or a read-through from the parent (which is memoized into the
// write-cache and primed into the iterator cache on a hit).
func (s *Session) Read(key bytes.Bytes) bytes.Bytes {
	if _, ok := s.deletedKeys[key]; ok {
		return bytes.Invalid
	}

	if v := s.cache.Read(key); v.IsValid() {
		return v
	}

	if s.parent == nil {
		return bytes.Invalid
	}

	v := s.parent.Read(key)
	if !v.IsValid() {
		return bytes.Invalid
	}

	s.cache.Write(key, v)
	s.updateIteratorCache(key, icParams{recalculate: true})
	return v
}

// Write buffers key=value locally. It is not visible to the parent until
// Commit.
func (s *Session) Write(key, value bytes.Bytes) {
	s.updatedKeys[key] = struct{}{}
	delete(s.deletedKeys, key)
	s.cache.Write(key, value)
	s.updateIteratorCache(key, icParams{recalculate: true, overwrite: true, markDeleted: false})
}

// Erase buffers key's deletion locally, shadowing any value visible
// through the parent. It is not visible to the parent until Commit.
func (s *Session) Erase(key bytes.Bytes) {
	s.deletedKeys[key] = struct{}{}
	delete(s.updatedKeys, key)
	s.cache.Erase(key)
	s.updateIteratorCache(key, icParams{recalculate: true, overwrite: true, markDeleted: true})
}

// Contains reports whether key resolves to a live value through this
// session, without materializing it.
func (s *Session) Contains(key bytes.Bytes) bool {
	if _, ok := s.deletedKeys[key]; ok {
		return false
	}
	if cur := s.cache.Find(key); cur.Valid() {
		return true
	}
	if s.parent != nil && s.parent.Contains(key) {
		s.updateIteratorCache(key, icParams{recalculate: true})
		return true
	}
	return false
}

// IsDeleted reports whether key is shadowed by a tombstone at this layer or
// any ancestor, without being shadowed by an intervening write.
func (s *Session) IsDeleted(key bytes.Bytes) bool {
	if _, ok := s.deletedKeys[key]; ok {
		return true
	}
	if _, ok := s.updatedKeys[key]; ok {
		return false
	}
	if s.parent != nil {
		return s.parent.IsDeleted(key)
	}
	return false
}

// Clear discards every buffered write, tombstone, and cache/iterator-cache
// entry, without touching the parent.
func (s *Session) Clear() {
	s.updatedKeys = make(map[bytes.Bytes]struct{})
	s.deletedKeys = make(map[bytes.Bytes]struct{})
	s.cache.Clear()
	s.iterCache.clear()
}

// ReadBatch reads each of keys, partitioning them into found pairs and the
// keys that resolved to nothing.
func (s *Session) ReadBatch(keys []bytes.Bytes) (found []KV, notFound []bytes.Bytes) {
	for _, k := range keys {
		if v := s.Read(k); v.IsValid() {
			found = append(found, KV{Key: k, Value: v})
		} else {
			notFound = append(notFound, k)
		}
	}
	return found, notFound
}

// WriteBatch writes every pair in kvs.
func (s *Session) WriteBatch(kvs []KV) {
	for _, kv := range kvs {
		s.Write(kv.Key, kv.Value)
	}
}

// EraseBatch erases every key in keys.
func (s *Session) EraseBatch(keys []bytes.Bytes) {
	for _, k := range keys {
		s.Erase(k)
	}
}

// WriteTo copies the current value of each live key in keys into dst, so
// one session can push a chosen key set into any Parent (not just its own).
// Commit does not go through it.
func (s *Session) WriteTo(dst Parent, keys []bytes.Bytes) {
	for _, k := range keys {
		if v := s.Read(k); v.IsValid() {
			dst.Write(k, v)
		}
	}
}

// ReadFrom pulls the current value of each key in keys from src into this
// session, mirroring WriteTo. If src exposes its own WriteTo (as a
// *Session does), that is used directly; otherwise (store.Leaf, for one) it
// falls back to reading key by key.
func (s *Session) ReadFrom(src Parent, keys []bytes.Bytes) {
	if w, ok := src.(interface{ WriteTo(Parent, []bytes.Bytes) }); ok {
		w.WriteTo(s, keys)
		return
	}
	for _, k := range keys {
		if v := src.Read(k); v.IsValid() {
			s.Write(k, v)
		}
	}
}
