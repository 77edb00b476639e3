// Package batch groups multiple mutations so they apply against a session
// in one pass, rather than one Write/Erase call at a time.
package batch

import "lsmdb/pkg/bytes"

// WriteBatch accumulates Put/Delete calls and applies them to a session
// together. Deletes are applied before writes, the same ordering
// Session.Commit uses when flushing its own buffered state, so a key that
// is both deleted and later put within the same batch ends up written.
type WriteBatch struct {
	writes map[bytes.Bytes]bytes.Bytes
	erases map[bytes.Bytes]struct{}
}

// New returns an empty batch.
func New() *WriteBatch {
	return &WriteBatch{
		writes: make(map[bytes.Bytes]bytes.Bytes),
		erases: make(map[bytes.Bytes]struct{}),
	}
}

// Put buffers key=value, undoing any pending Delete of key in this batch.
func (b *WriteBatch) Put(key, value bytes.Bytes) {
	delete(b.erases, key)
	b.writes[key] = value
}

// Delete buffers key's deletion, undoing any pending Put of key in this
// batch.
func (b *WriteBatch) Delete(key bytes.Bytes) {
	delete(b.writes, key)
	b.erases[key] = struct{}{}
}

// Clear discards every buffered Put and Delete.
func (b *WriteBatch) Clear() {
	b.writes = make(map[bytes.Bytes]bytes.Bytes)
	b.erases = make(map[bytes.Bytes]struct{})
}

// Count reports the number of distinct keys currently buffered.
func (b *WriteBatch) Count() int {
	return len(b.writes) + len(b.erases)
}

// target is the minimal surface Apply needs: a Session or anything else
// that offers buffered Write/Erase the same way.
type target interface {
	Write(key, value bytes.Bytes)
	Erase(key bytes.Bytes)
}

// Apply writes every buffered erase, then every buffered write, to dst in
// one pass.
func (b *WriteBatch) Apply(dst target) {
	for k := range b.erases {
		dst.Erase(k)
	}
	for k, v := range b.writes {
		dst.Write(k, v)
	}
}
