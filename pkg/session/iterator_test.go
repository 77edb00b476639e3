package session

import "testing"

func TestIteratorSkipsDeletedKeys(t *testing.T) {
	leaf := newFakeParent([2]string{"a", "1"}, [2]string{"b", "2"}, [2]string{"c", "3"})
	s := NewAttached(leaf)
	s.Erase(b("b"))

	it := s.Begin()
	if it.Key().String() != "a" {
		t.Fatalf("Begin() = %q, want a", it.Key().String())
	}
	it.Next()
	if it.Key().String() != "c" {
		t.Fatalf("after Next() = %q, want c (b skipped)", it.Key().String())
	}
}

func TestIteratorEndNextRollsOverToBegin(t *testing.T) {
	leaf := newFakeParent([2]string{"a", "1"}, [2]string{"b", "2"})
	s := NewAttached(leaf)

	it := s.End()
	if it.Valid() {
		t.Fatalf("End() should be invalid")
	}
	it.Next()
	if it.Key().String() != "a" {
		t.Fatalf("end()++ = %q, want a (rollover)", it.Key().String())
	}
}

func TestIteratorBeginPrevRollsOverToLast(t *testing.T) {
	leaf := newFakeParent([2]string{"a", "1"}, [2]string{"b", "2"})
	s := NewAttached(leaf)

	it := s.Begin()
	it.Prev()
	if it.Key().String() != "b" {
		t.Fatalf("begin()-- = %q, want b (rollover)", it.Key().String())
	}
}

func TestIteratorOnEmptySessionIsAlwaysInvalid(t *testing.T) {
	s := New()
	it := s.Begin()
	if it.Valid() {
		t.Fatalf("Begin() on empty session should be invalid")
	}
	it.Next()
	if it.Valid() {
		t.Fatalf("Next() on empty session should stay invalid")
	}
}

func TestIteratorValueReadsThroughSession(t *testing.T) {
	leaf := newFakeParent([2]string{"a", "1"})
	s := NewAttached(leaf)
	s.Write(b("a"), b("9")) // local write shadows the leaf's value

	it := s.Begin()
	if it.Value().String() != "9" {
		t.Fatalf("Value() = %q, want local override 9", it.Value().String())
	}
}
