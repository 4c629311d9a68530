package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a host. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	CallsTotal       *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	ErrorsTotal      *prometheus.CounterVec
	DroppedTotal     *prometheus.CounterVec
	FlushedTotal     *prometheus.CounterVec
	OverlapsTotal    *prometheus.CounterVec
	AllocationsTotal *prometheus.CounterVec
}

// NewMetrics creates the host metrics and registers them with registry when
// it is not nil
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framego_plugin_calls_total",
				Help: "Total number of plugin calls by operation and outcome",
			},
			[]string{"plugin", "op", "status"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framego_plugin_call_duration_seconds",
				Help:    "Plugin call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"plugin", "op"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framego_plugin_errors_total",
				Help: "Total number of plugin errors by kind",
			},
			[]string{"plugin", "kind"},
		),
		DroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framego_frame_sets_dropped_total",
				Help: "Total number of input frame sets dropped after a processing error",
			},
			[]string{"plugin"},
		),
		FlushedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framego_frame_sets_flushed_total",
				Help: "Total number of frame sets produced while draining",
			},
			[]string{"plugin"},
		),
		OverlapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framego_overlapping_calls_total",
				Help: "Total number of calls that had to wait for another call on the same instance",
			},
			[]string{"plugin"},
		),
		AllocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framego_frame_allocations_total",
				Help: "Total number of output frame allocations by pool result",
			},
			[]string{"result"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.CallsTotal,
			m.CallDuration,
			m.ErrorsTotal,
			m.DroppedTotal,
			m.FlushedTotal,
			m.OverlapsTotal,
			m.AllocationsTotal,
		)
	}

	return m
}

// RecordCall records one plugin call
func (m *Metrics) RecordCall(plugin, op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(plugin, op, status).Inc()
	m.CallDuration.WithLabelValues(plugin, op).Observe(duration.Seconds())
}

// RecordError records a plugin error of the given kind
func (m *Metrics) RecordError(plugin, kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(plugin, kind).Inc()
}

// RecordDropped records a dropped input frame set
func (m *Metrics) RecordDropped(plugin string) {
	if m == nil {
		return
	}
	m.DroppedTotal.WithLabelValues(plugin).Inc()
}

// RecordFlushed records a frame set produced by Flush
func (m *Metrics) RecordFlushed(plugin string) {
	if m == nil {
		return
	}
	m.FlushedTotal.WithLabelValues(plugin).Inc()
}

// RecordOverlap records a call that found the instance busy
func (m *Metrics) RecordOverlap(plugin string) {
	if m == nil {
		return
	}
	m.OverlapsTotal.WithLabelValues(plugin).Inc()
}

// RecordAllocation records a pool hit or miss
func (m *Metrics) RecordAllocation(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.AllocationsTotal.WithLabelValues(result).Inc()
}
