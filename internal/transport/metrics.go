// Copyright 2025 Joseph Cumines
//
// Metrics registry for observability

package transport

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MetricsRegistry provides thread-safe metrics collection for the PIM MCP
// server. It tracks request counts, latencies, automation failures, and
// active SSE connections using simple in-memory counters that can be
// exported in Prometheus text format.
type MetricsRegistry struct {
	counters   map[string]*counter
	histograms map[string]*histogram
	gauges     map[string]*gauge
	mu         sync.RWMutex
}

// counter represents a monotonically increasing counter with optional labels.
type counter struct {
	values map[string]uint64 // label combo -> count
	mu     sync.RWMutex
}

// histogram represents a distribution of values with predefined buckets.
type histogram struct {
	counts  map[string][]uint64 // label combo -> bucket counts
	sums    map[string]float64  // label combo -> sum of all values
	totals  map[string]uint64   // label combo -> total count
	buckets []float64           // bucket upper bounds
	mu      sync.RWMutex
}

// gauge represents a value that can go up or down.
type gauge struct {
	values map[string]float64
	mu     sync.RWMutex
}

// Default histogram buckets for request latencies (in seconds). Automation
// calls routinely take hundreds of milliseconds, so the upper range matters.
var defaultLatencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// NewMetricsRegistry creates a new metrics registry with the standard
// pim_mcp metrics pre-registered.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
		gauges:     make(map[string]*gauge),
	}

	m.registerCounter("pim_mcp_requests_total")
	m.registerCounter("pim_mcp_automation_errors_total")
	m.registerCounter("pim_mcp_sse_events_sent_total")
	m.registerHistogram("pim_mcp_request_duration_seconds", defaultLatencyBuckets)
	m.registerGauge("pim_mcp_sse_connections_active")

	return m
}

func (m *MetricsRegistry) registerCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = &counter{values: make(map[string]uint64)}
}

func (m *MetricsRegistry) registerHistogram(name string, buckets []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = &histogram{
		buckets: buckets,
		counts:  make(map[string][]uint64),
		sums:    make(map[string]float64),
		totals:  make(map[string]uint64),
	}
}

func (m *MetricsRegistry) registerGauge(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = &gauge{values: make(map[string]float64)}
}

// IncrementCounter increments a counter by 1 for the given label combination.
// Labels should be formatted as: key1="value1",key2="value2"
func (m *MetricsRegistry) IncrementCounter(name string, labels string) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	c.values[labels]++
	c.mu.Unlock()
}

// ObserveHistogram records a value in a histogram for the given label combination.
func (m *MetricsRegistry) ObserveHistogram(name string, labels string, value float64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.counts[labels]; !exists {
		h.counts[labels] = make([]uint64, len(h.buckets)+1) // +1 for +Inf
	}

	h.sums[labels] += value
	h.totals[labels]++

	// Buckets are stored per-bucket, not cumulative; writeHistogram
	// accumulates at export time.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[labels][i]++
			return
		}
	}
	h.counts[labels][len(h.buckets)]++
}

// SetGauge sets a gauge to a specific value.
func (m *MetricsRegistry) SetGauge(name string, labels string, value float64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	g.mu.Lock()
	g.values[labels] = value
	g.mu.Unlock()
}

// IncrementGauge increments a gauge by delta.
func (m *MetricsRegistry) IncrementGauge(name string, labels string, delta float64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	g.mu.Lock()
	g.values[labels] += delta
	g.mu.Unlock()
}

// metricLine formats a single sample with optional labels.
func metricLine(w io.Writer, name, labels, value string) error {
	if labels == "" {
		_, err := fmt.Fprintf(w, "%s %s\n", name, value)
		return err
	}
	_, err := fmt.Fprintf(w, "%s{%s} %s\n", name, labels, value)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WritePrometheus writes all metrics in Prometheus text format to the writer.
// Output is sorted by metric name and label set for deterministic scrapes.
func (m *MetricsRegistry) WritePrometheus(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range sortedKeys(m.counters) {
		c := m.counters[name]
		c.mu.RLock()
		if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", name); err != nil {
			c.mu.RUnlock()
			return err
		}
		for _, l := range sortedKeys(c.values) {
			if err := metricLine(w, name, l, fmt.Sprintf("%d", c.values[l])); err != nil {
				c.mu.RUnlock()
				return err
			}
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.gauges) {
		g := m.gauges[name]
		g.mu.RLock()
		if _, err := fmt.Fprintf(w, "# TYPE %s gauge\n", name); err != nil {
			g.mu.RUnlock()
			return err
		}
		for _, l := range sortedKeys(g.values) {
			if err := metricLine(w, name, l, fmt.Sprintf("%g", g.values[l])); err != nil {
				g.mu.RUnlock()
				return err
			}
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.histograms) {
		h := m.histograms[name]
		h.mu.RLock()
		if err := writeHistogram(w, name, h); err != nil {
			h.mu.RUnlock()
			return err
		}
		h.mu.RUnlock()
	}

	return nil
}

// writeHistogram emits cumulative buckets, sum, and count for one histogram.
// Caller holds the histogram's read lock.
func writeHistogram(w io.Writer, name string, h *histogram) error {
	if _, err := fmt.Fprintf(w, "# TYPE %s histogram\n", name); err != nil {
		return err
	}
	for _, l := range sortedKeys(h.counts) {
		counts := h.counts[l]

		labelPrefix := ""
		if l != "" {
			labelPrefix = l + ","
		}

		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += counts[i]
			if _, err := fmt.Fprintf(w, "%s_bucket{%sle=\"%g\"} %d\n", name, labelPrefix, bound, cumulative); err != nil {
				return err
			}
		}
		cumulative += counts[len(h.buckets)]
		if _, err := fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", name, labelPrefix, cumulative); err != nil {
			return err
		}

		if err := metricLine(w, name+"_sum", l, fmt.Sprintf("%g", h.sums[l])); err != nil {
			return err
		}
		if err := metricLine(w, name+"_count", l, fmt.Sprintf("%d", h.totals[l])); err != nil {
			return err
		}
	}
	return nil
}

// RecordRequest records a tool invocation with count and latency metrics.
// This is the main entry point for instrumentation from the MCP server.
func (m *MetricsRegistry) RecordRequest(tool string, status string, duration time.Duration) {
	labels := fmt.Sprintf(`tool="%s",status="%s"`, tool, status)
	m.IncrementCounter("pim_mcp_requests_total", labels)

	toolLabels := fmt.Sprintf(`tool="%s"`, tool)
	m.ObserveHistogram("pim_mcp_request_duration_seconds", toolLabels, duration.Seconds())
}

// RecordAutomationError records an osascript failure by error kind
// (script, permission, or timeout).
func (m *MetricsRegistry) RecordAutomationError(kind string) {
	m.IncrementCounter("pim_mcp_automation_errors_total", fmt.Sprintf(`kind="%s"`, kind))
}

// RecordSSEEvent records an SSE event being sent.
func (m *MetricsRegistry) RecordSSEEvent() {
	m.IncrementCounter("pim_mcp_sse_events_sent_total", "")
}

// SetSSEConnections sets the current number of active SSE connections.
func (m *MetricsRegistry) SetSSEConnections(count int) {
	m.SetGauge("pim_mcp_sse_connections_active", "", float64(count))
}

// Global metrics registry instance
var defaultMetrics = NewMetricsRegistry()

// DefaultMetrics returns the global metrics registry.
func DefaultMetrics() *MetricsRegistry {
	return defaultMetrics
}
