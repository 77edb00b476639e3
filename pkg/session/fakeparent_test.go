package session

import (
	"lsmdb/pkg/bytes"
	"lsmdb/pkg/writecache"
)

// fakeParent is a minimal, in-memory Parent used only by this package's own
// tests, standing in for a terminal leaf store. It never deletes (IsDeleted
// is always false, matching store.Leaf's documented contract) and has no
// durability of its own.
type fakeParent struct {
	data *writecache.Cache
}

func newFakeParent(pairs ...[2]string) *fakeParent {
	fp := &fakeParent{data: writecache.New()}
	for _, kv := range pairs {
		fp.data.Write(bytes.FromString(kv[0]), bytes.FromString(kv[1]))
	}
	return fp
}

func (fp *fakeParent) Read(k bytes.Bytes) bytes.Bytes { return fp.data.Read(k) }
func (fp *fakeParent) Write(k, v bytes.Bytes)         { fp.data.Write(k, v) }
func (fp *fakeParent) Erase(k bytes.Bytes)            { fp.data.Erase(k) }
func (fp *fakeParent) Contains(k bytes.Bytes) bool    { return fp.data.Find(k).Valid() }
func (fp *fakeParent) IsDeleted(bytes.Bytes) bool     { return false }

func (fp *fakeParent) Begin() Iterator               { return &cacheIterator{fp.data.Begin()} }
func (fp *fakeParent) End() Iterator                 { return &cacheIterator{fp.data.End()} }
func (fp *fakeParent) Find(k bytes.Bytes) Iterator   { return &cacheIterator{fp.data.Find(k)} }
func (fp *fakeParent) LowerBound(k bytes.Bytes) Iterator {
	return &cacheIterator{fp.data.LowerBound(k)}
}
func (fp *fakeParent) UpperBound(k bytes.Bytes) Iterator {
	return &cacheIterator{fp.data.UpperBound(k)}
}

// cacheIterator adapts a *writecache.Cursor (which has no Close) to the
// session.Iterator interface.
type cacheIterator struct {
	cur *writecache.Cursor
}

func (it *cacheIterator) Valid() bool        { return it.cur.Valid() }
func (it *cacheIterator) Key() bytes.Bytes   { return it.cur.Key() }
func (it *cacheIterator) Value() bytes.Bytes { return it.cur.Value() }
func (it *cacheIterator) Next()              { it.cur.Next() }
func (it *cacheIterator) Prev()              { it.cur.Prev() }
func (it *cacheIterator) Close() error       { return nil }

func b(s string) bytes.Bytes { return bytes.FromString(s) }
