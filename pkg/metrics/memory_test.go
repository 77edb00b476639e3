package metrics

import "testing"

func TestMemoryIncCounterAccumulates(t *testing.T) {
	m := NewMemory()
	m.IncCounter("writes", nil, 1)
	m.IncCounter("writes", nil, 2)

	if got := m.Counter("writes", nil); got != 3 {
		t.Fatalf("Counter(writes) = %v, want 3", got)
	}
}

func TestMemoryCounterDistinguishesLabels(t *testing.T) {
	m := NewMemory()
	m.IncCounter("requests", map[string]string{"route": "/keys"}, 1)
	m.IncCounter("requests", map[string]string{"route": "/health"}, 1)

	if got := m.Counter("requests", map[string]string{"route": "/keys"}); got != 1 {
		t.Fatalf("Counter(requests, /keys) = %v, want 1", got)
	}
	if got := m.Counter("requests", map[string]string{"route": "/health"}); got != 1 {
		t.Fatalf("Counter(requests, /health) = %v, want 1", got)
	}
}

func TestMemoryLabelOrderIsIrrelevant(t *testing.T) {
	m := NewMemory()
	m.IncCounter("x", map[string]string{"a": "1", "b": "2"}, 1)

	if got := m.Counter("x", map[string]string{"b": "2", "a": "1"}); got != 1 {
		t.Fatalf("Counter(x) with reordered labels = %v, want 1", got)
	}
}

func TestNoopDiscardsEverything(t *testing.T) {
	var n Noop
	n.IncCounter("x", nil, 1)
	n.SetGauge("y", nil, 1)
	n.ObserveHistogram("z", nil, 1)
}
