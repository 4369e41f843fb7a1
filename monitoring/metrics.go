package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeSummary MetricType = "summary"
)

// Metric names exported on /metrics.
const (
	MetricPredictions       = "loanwise_predictions_total"
	MetricPredictionSeconds = "loanwise_prediction_seconds"
	MetricRateLimited       = "loanwise_rate_limited_total"
	MetricLiveConnections   = "loanwise_live_connections"
)

// Prediction outcomes, used as the "outcome" label.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

type series struct {
	labels string
	value  float64
	count  uint64
	max    float64
}

type family struct {
	help   string
	kind   MetricType
	series map[string]*series
}

// MetricsCollector holds process-local counters, gauges and summaries. Only
// aggregates are kept; individual requests are never stored.
type MetricsCollector struct {
	mu        sync.Mutex
	families  map[string]*family
	startTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		families:  make(map[string]*family),
		startTime: time.Now(),
	}
	mc.describe(MetricPredictions, MetricTypeCounter, "Predictions served, by outcome and channel.")
	mc.describe(MetricPredictionSeconds, MetricTypeSummary, "Time spent aligning and scoring one applicant.")
	mc.describe(MetricRateLimited, MetricTypeCounter, "Requests rejected by the per-client rate limiter.")
	mc.describe(MetricLiveConnections, MetricTypeGauge, "Open live prediction WebSocket connections.")
	return mc
}

func (mc *MetricsCollector) describe(name string, kind MetricType, help string) {
	mc.families[name] = &family{help: help, kind: kind, series: make(map[string]*series)}
}

func (mc *MetricsCollector) get(name string, kind MetricType, labels map[string]string) *series {
	f, ok := mc.families[name]
	if !ok {
		f = &family{help: "Metric " + name, kind: kind, series: make(map[string]*series)}
		mc.families[name] = f
	}
	key := formatLabels(labels)
	s, ok := f.series[key]
	if !ok {
		s = &series{labels: key}
		f.series[key] = s
	}
	return s
}

// IncrCounter adds value to a counter. Safe on a nil collector.
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.get(name, MetricTypeCounter, labels).value += value
}

// AddGauge moves a gauge by delta.
func (mc *MetricsCollector) AddGauge(name string, delta float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.get(name, MetricTypeGauge, labels).value += delta
}

// Observe records one sample into a summary (count, sum and max).
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	s := mc.get(name, MetricTypeSummary, labels)
	s.value += value
	s.count++
	if value > s.max {
		s.max = value
	}
}

// RecordPrediction counts one prediction and its latency.
func (mc *MetricsCollector) RecordPrediction(channel, outcome string, took time.Duration) {
	labels := map[string]string{"channel": channel, "outcome": outcome}
	mc.IncrCounter(MetricPredictions, 1, labels)
	if outcome == OutcomeApproved || outcome == OutcomeRejected {
		mc.Observe(MetricPredictionSeconds, took.Seconds(), map[string]string{"channel": channel})
	}
}

// Value returns the current value of one series, or 0 if it was never set.
func (mc *MetricsCollector) Value(name string, labels map[string]string) float64 {
	if mc == nil {
		return 0
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	f, ok := mc.families[name]
	if !ok {
		return 0
	}
	if s, ok := f.series[formatLabels(labels)]; ok {
		return s.value
	}
	return 0
}

// GetUptime returns the time since the collector was created.
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// ExportPrometheus renders every series in the Prometheus text format,
// sorted by name and labels.
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var b strings.Builder
	writeFamily := func(name, help string, kind MetricType) {
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, kind)
	}

	names := make([]string, 0, len(mc.families))
	for name := range mc.families {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := mc.families[name]
		if len(f.series) == 0 {
			continue
		}
		writeFamily(name, f.help, f.kind)

		keys := make([]string, 0, len(f.series))
		for k := range f.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s := f.series[k]
			if f.kind == MetricTypeSummary {
				fmt.Fprintf(&b, "%s_sum%s %g\n", name, s.labels, s.value)
				fmt.Fprintf(&b, "%s_count%s %d\n", name, s.labels, s.count)
				continue
			}
			fmt.Fprintf(&b, "%s%s %g\n", name, s.labels, s.value)
		}
	}

	writeFamily("loanwise_uptime_seconds", "Seconds since the process started.", MetricTypeGauge)
	fmt.Fprintf(&b, "loanwise_uptime_seconds %g\n", mc.GetUptime().Seconds())
	writeFamily("loanwise_goroutines", "Number of goroutines.", MetricTypeGauge)
	fmt.Fprintf(&b, "loanwise_goroutines %d\n", runtime.NumGoroutine())
	return b.String()
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf(`%s=%q`, k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
