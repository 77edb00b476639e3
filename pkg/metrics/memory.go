package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is a Collector that keeps everything in process memory, good
// enough for the debug/demo scale this repository targets: a single local
// process with no separate metrics backend to ship samples to.
type Memory struct {
	mu         sync.Mutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMemory returns an empty Memory collector.
func NewMemory() *Memory {
	return &Memory{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *Memory) IncCounter(name string, labels map[string]string, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey(name, labels)] += delta
}

func (m *Memory) SetGauge(name string, labels map[string]string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metricKey(name, labels)] = value
}

func (m *Memory) ObserveHistogram(name string, labels map[string]string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricKey(name, labels)
	m.histograms[key] = append(m.histograms[key], value)
}

// Counter returns the current value of a counter, for tests and the -demo
// flag's summary line.
func (m *Memory) Counter(name string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metricKey(name, labels)]
}

// metricKey folds a metric name and its labels into one deterministic
// string key, sorting labels so the same label set never produces two
// different keys depending on call-site ordering.
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}
