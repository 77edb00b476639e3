package writecache

import (
	"testing"

	"lsmdb/pkg/bytes"
)

func cb(s string) bytes.Bytes { return bytes.FromString(s) }

func TestCacheWriteReadErase(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))

	if got := c.Read(cb("a")); got.String() != "1" {
		t.Fatalf("Read(a) = %q, want 1", got.String())
	}

	c.Erase(cb("a"))
	if got := c.Read(cb("a")); got.IsValid() {
		t.Fatalf("Read(a) after erase = %v, want invalid", got)
	}
}

func TestCacheReadMissingIsInvalid(t *testing.T) {
	c := New()
	if got := c.Read(cb("missing")); got.IsValid() {
		t.Fatalf("Read(missing) = %v, want invalid", got)
	}
}

func TestCacheWriteOverwrites(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))
	c.Write(cb("a"), cb("2"))

	if got := c.Read(cb("a")); got.String() != "2" {
		t.Fatalf("Read(a) = %q, want 2", got.String())
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheOrderedIteration(t *testing.T) {
	c := New()
	c.Write(cb("c"), cb("3"))
	c.Write(cb("a"), cb("1"))
	c.Write(cb("b"), cb("2"))

	var got []string
	c.Range(func(k, v bytes.Bytes) bool {
		got = append(got, k.String())
		return true
	})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Range order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Range order = %v, want %v", got, want)
		}
	}
}

func TestCacheRangeStopsEarly(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))
	c.Write(cb("b"), cb("2"))
	c.Write(cb("c"), cb("3"))

	var got []string
	c.Range(func(k, v bytes.Bytes) bool {
		got = append(got, k.String())
		return k.String() != "b"
	})
	if len(got) != 2 {
		t.Fatalf("Range visited %v, want stop after b", got)
	}
}

func TestCacheCursorBounds(t *testing.T) {
	c := New()
	c.Write(cb("b"), cb("2"))
	c.Write(cb("d"), cb("4"))

	if got := c.LowerBound(cb("a")).Key(); got.String() != "b" {
		t.Fatalf("LowerBound(a) = %q, want b", got.String())
	}
	if got := c.LowerBound(cb("b")).Key(); got.String() != "b" {
		t.Fatalf("LowerBound(b) = %q, want b", got.String())
	}
	if got := c.UpperBound(cb("b")).Key(); got.String() != "d" {
		t.Fatalf("UpperBound(b) = %q, want d", got.String())
	}
	if cur := c.UpperBound(cb("d")); cur.Valid() {
		t.Fatalf("UpperBound(d) should be End(), got %q", cur.Key().String())
	}
}

func TestCacheFind(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))

	if got := c.Find(cb("a")); !got.Valid() || got.Value().String() != "1" {
		t.Fatalf("Find(a) invalid or wrong value")
	}
	if got := c.Find(cb("missing")); got.Valid() {
		t.Fatalf("Find(missing) should be End()")
	}
}

func TestCacheCursorDoesNotWrap(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))

	end := c.End()
	if end.Valid() {
		t.Fatalf("End() should be invalid")
	}
	end.Next()
	if end.Valid() {
		t.Fatalf("End().Next() should stay invalid, not wrap to Begin()")
	}

	begin := c.Begin()
	begin.Prev()
	if begin.Valid() {
		t.Fatalf("Begin().Prev() should stay invalid, not wrap to End()")
	}
}

func TestCacheCursorNextPrev(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))
	c.Write(cb("b"), cb("2"))

	cur := c.Begin()
	if got := cur.Key(); got.String() != "a" {
		t.Fatalf("Begin().Key() = %q, want a", got.String())
	}
	cur.Next()
	if got := cur.Key(); got.String() != "b" {
		t.Fatalf("after Next(), Key() = %q, want b", got.String())
	}
	cur.Prev()
	if got := cur.Key(); got.String() != "a" {
		t.Fatalf("after Prev(), Key() = %q, want a", got.String())
	}
}

func TestCacheEraseSetAndClear(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))
	c.Write(cb("b"), cb("2"))

	c.EraseSet([]bytes.Bytes{cb("a"), cb("b")})
	if c.Len() != 0 {
		t.Fatalf("Len() after EraseSet = %d, want 0", c.Len())
	}

	c.Write(cb("c"), cb("3"))
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", c.Len())
	}
}

type writeTarget struct {
	writes map[string]string
}

func (wt *writeTarget) Write(k, v bytes.Bytes) {
	if wt.writes == nil {
		wt.writes = make(map[string]string)
	}
	wt.writes[k.String()] = v.String()
}

func TestCacheWriteToCopiesOnlyNamedKeys(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))
	c.Write(cb("b"), cb("2"))

	dst := &writeTarget{}
	c.WriteTo(dst, []bytes.Bytes{cb("a")})

	if len(dst.writes) != 1 || dst.writes["a"] != "1" {
		t.Fatalf("WriteTo copied %v, want only a=1", dst.writes)
	}
}

func TestCacheWriteToSkipsMissingKeys(t *testing.T) {
	c := New()
	c.Write(cb("a"), cb("1"))

	dst := &writeTarget{}
	c.WriteTo(dst, []bytes.Bytes{cb("a"), cb("missing")})

	if len(dst.writes) != 1 {
		t.Fatalf("WriteTo copied %v, want only a", dst.writes)
	}
}
