package persistence

import (
	"path/filepath"
	"testing"

	"lsmdb/pkg/bytes"
)

func sb(s string) bytes.Bytes { return bytes.FromString(s) }

func writeTestSnapshot(t *testing.T, items []SSTableItem) *SSTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.sst")
	sst, err := WriteSnapshot(path, items, 0.01, 16)
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	t.Cleanup(func() { _ = sst.Close() })
	return sst
}

func TestWriteSnapshotAndGet(t *testing.T) {
	items := []SSTableItem{
		{Key: sb("a"), Value: sb("1"), Meta: 1},
		{Key: sb("b"), Value: sb("2"), Meta: 2},
		{Key: sb("c"), Value: sb("3"), Meta: 3},
	}
	sst := writeTestSnapshot(t, items)

	got, err := sst.Get(sb("b"))
	if err != nil {
		t.Fatalf("Get(b) error = %v", err)
	}
	if got.Value.String() != "2" {
		t.Fatalf("Get(b).Value = %q, want 2", got.Value.String())
	}
	if got.Meta != 2 {
		t.Fatalf("Get(b).Meta = %d, want 2", got.Meta)
	}
}

func TestSSTableGetMissingKey(t *testing.T) {
	sst := writeTestSnapshot(t, []SSTableItem{
		{Key: sb("a"), Value: sb("1")},
	})

	if _, err := sst.Get(sb("missing")); err == nil {
		t.Fatalf("Get(missing) error = nil, want error")
	}
}

func TestSSTableHasKey(t *testing.T) {
	sst := writeTestSnapshot(t, []SSTableItem{
		{Key: sb("a"), Value: sb("1")},
	})

	has, err := sst.HasKey(sb("a"))
	if err != nil {
		t.Fatalf("HasKey(a) error = %v", err)
	}
	if !has {
		t.Fatalf("HasKey(a) = false, want true")
	}

	has, err = sst.HasKey(sb("missing"))
	if err != nil {
		t.Fatalf("HasKey(missing) error = %v", err)
	}
	if has {
		t.Fatalf("HasKey(missing) = true, want false")
	}
}

func TestSSTableGetUsesBlockCache(t *testing.T) {
	sst := writeTestSnapshot(t, []SSTableItem{
		{Key: sb("a"), Value: sb("1")},
	})

	if _, err := sst.Get(sb("a")); err != nil {
		t.Fatalf("first Get(a) error = %v", err)
	}

	cached, ok := sst.cache.Get("a")
	if !ok {
		t.Fatalf("block cache has no entry for a after Get")
	}
	if cached.Value.String() != "1" {
		t.Fatalf("cached value = %q, want 1", cached.Value.String())
	}
}

func TestSSTableIteratorVisitsEveryEntryInOrder(t *testing.T) {
	items := []SSTableItem{
		{Key: sb("a"), Value: sb("1")},
		{Key: sb("b"), Value: sb("2")},
		{Key: sb("c"), Value: sb("3")},
	}
	sst := writeTestSnapshot(t, items)

	it := sst.NewIterator()
	var got []string
	for it.First(); it.Valid(); it.Next() {
		got = append(got, it.Key().String()+"="+it.Value().String())
	}
	want := []string{"a=1", "b=2", "c=3"}
	if len(got) != len(want) {
		t.Fatalf("iterator visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iterator visited %v, want %v", got, want)
		}
	}
}

func TestSSTableOpenLoadsIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.sst")
	items := []SSTableItem{
		{Key: sb("a"), Value: sb("1")},
		{Key: sb("b"), Value: sb("2")},
	}
	written, err := WriteSnapshot(path, items, 0.01, 16)
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if err := written.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := NewSSTable(path, nil, NewBlockCache(16))
	if err := reopened.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if len(reopened.blockIndex) != len(items) {
		t.Fatalf("blockIndex has %d entries, want %d", len(reopened.blockIndex), len(items))
	}

	got, err := reopened.Get(sb("b"))
	if err != nil {
		t.Fatalf("Get(b) error = %v", err)
	}
	if got.Value.String() != "2" {
		t.Fatalf("Get(b).Value = %q, want 2", got.Value.String())
	}
}

func TestSSTableApproximateSizeAndFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.sst")
	items := []SSTableItem{{Key: sb("a"), Value: sb("1")}}

	sst, err := WriteSnapshot(path, items, 0.01, 16)
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	defer func() { _ = sst.Close() }()

	if sst.GetFilePath() != path {
		t.Fatalf("GetFilePath() = %q, want %q", sst.GetFilePath(), path)
	}
	if sst.ApproximateSize() <= 0 {
		t.Fatalf("ApproximateSize() = %d, want > 0", sst.ApproximateSize())
	}
}

func TestWriteSnapshotEmptyItems(t *testing.T) {
	sst := writeTestSnapshot(t, nil)

	it := sst.NewIterator()
	it.First()
	if it.Valid() {
		t.Fatalf("iterator over empty snapshot is valid, want immediately exhausted")
	}
}

func TestBlockCacheSetAndGet(t *testing.T) {
	bc := NewBlockCache(2)

	bc.Set("a", SSTableItem{Value: sb("1")})
	if got, ok := bc.Get("a"); !ok || got.Value.String() != "1" {
		t.Fatalf("Get(a) = (%v, %v), want (1, true)", got, ok)
	}
}

func TestBlockCacheMissingKey(t *testing.T) {
	bc := NewBlockCache(2)
	if _, ok := bc.Get("missing"); ok {
		t.Fatalf("Get(missing) ok = true, want false")
	}
}

func TestBlockCacheOverwriteUpdatesValue(t *testing.T) {
	bc := NewBlockCache(2)
	bc.Set("a", SSTableItem{Value: sb("1")})
	bc.Set("a", SSTableItem{Value: sb("2")})

	got, ok := bc.Get("a")
	if !ok || got.Value.String() != "2" {
		t.Fatalf("Get(a) = (%v, %v), want (2, true)", got, ok)
	}
}

func TestBlockCacheEvictsLeastRecentlyUsed(t *testing.T) {
	bc := NewBlockCache(2)
	bc.Set("a", SSTableItem{Value: sb("1")})
	bc.Set("b", SSTableItem{Value: sb("2")})

	// touch a so it becomes more recently used than b
	if _, ok := bc.Get("a"); !ok {
		t.Fatalf("Get(a) ok = false, want true")
	}

	bc.Set("c", SSTableItem{Value: sb("3")}) // should evict b, the LRU entry

	if _, ok := bc.Get("b"); ok {
		t.Fatalf("Get(b) ok = true after eviction, want false")
	}
	if _, ok := bc.Get("a"); !ok {
		t.Fatalf("Get(a) ok = false, want true (should survive eviction)")
	}
	if _, ok := bc.Get("c"); !ok {
		t.Fatalf("Get(c) ok = false, want true")
	}
}

func TestBlockCacheCapacityOneEvictsImmediately(t *testing.T) {
	bc := NewBlockCache(1)
	bc.Set("a", SSTableItem{Value: sb("1")})
	bc.Set("b", SSTableItem{Value: sb("2")})

	if _, ok := bc.Get("a"); ok {
		t.Fatalf("Get(a) ok = true, want false (evicted by capacity 1)")
	}
	if got, ok := bc.Get("b"); !ok || got.Value.String() != "2" {
		t.Fatalf("Get(b) = (%v, %v), want (2, true)", got, ok)
	}
}
