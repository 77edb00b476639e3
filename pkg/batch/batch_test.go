package batch

import (
	"testing"

	"lsmdb/pkg/bytes"
	"lsmdb/pkg/session"
)

func bb(s string) bytes.Bytes { return bytes.FromString(s) }

func TestWriteBatchCount(t *testing.T) {
	b := New()
	if got := b.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}

	b.Put(bb("a"), bb("1"))
	b.Put(bb("b"), bb("2"))
	b.Delete(bb("c"))

	if got := b.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
}

func TestWriteBatchPutOverridesDelete(t *testing.T) {
	b := New()
	b.Delete(bb("a"))
	b.Put(bb("a"), bb("1"))

	if got := b.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	if _, pending := b.erases[bb("a")]; pending {
		t.Fatalf("a is still pending delete after Put")
	}
}

func TestWriteBatchDeleteOverridesPut(t *testing.T) {
	b := New()
	b.Put(bb("a"), bb("1"))
	b.Delete(bb("a"))

	if got := b.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	if _, pending := b.writes[bb("a")]; pending {
		t.Fatalf("a is still pending write after Delete")
	}
}

func TestWriteBatchClear(t *testing.T) {
	b := New()
	b.Put(bb("a"), bb("1"))
	b.Delete(bb("b"))
	b.Clear()

	if got := b.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0 after Clear", got)
	}
}

func TestWriteBatchApplyErasesBeforeWrites(t *testing.T) {
	s := session.New()
	s.Write(bb("a"), bb("stale"))

	b := New()
	b.Delete(bb("a"))
	b.Put(bb("a"), bb("fresh"))
	b.Apply(s)

	if got := s.Read(bb("a")); got.String() != "fresh" {
		t.Fatalf("Read(a) = %q, want fresh", got.String())
	}
}

func TestWriteBatchApplyAgainstSession(t *testing.T) {
	s := session.New()

	b := New()
	b.Put(bb("a"), bb("1"))
	b.Put(bb("b"), bb("2"))
	b.Apply(s)

	if got := s.Read(bb("a")); got.String() != "1" {
		t.Fatalf("Read(a) = %q, want 1", got.String())
	}
	if got := s.Read(bb("b")); got.String() != "2" {
		t.Fatalf("Read(b) = %q, want 2", got.String())
	}
}
