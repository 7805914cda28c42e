// Package telemetry exposes the monitor engine's own health as Prometheus
// metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

const namespace = "hostwatch"

// Compile-time check that Metrics satisfies monitor.Observer.
var _ monitor.Observer = (*Metrics)(nil)

// Metrics records engine events into Prometheus collectors registered on a
// private registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles         *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	kindFailures   *prometheus.CounterVec
	pointsApplied  *prometheus.CounterVec
	staleDropped   *prometheus.CounterVec
	triggerDropped prometheus.Counter
	lastFailed     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them, along with the Go
// runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Refresh cycles completed, by mode.",
		}, []string{"mode"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time from fan-out to join for one refresh cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"mode"}),
		kindFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Per-kind fetches that returned an error.",
		}, []string{"kind", "mode"}),
		pointsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_applied_total",
			Help:      "Series points written to the stream table.",
		}, []string{"kind", "mode"}),
		staleDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_dropped_total",
			Help:      "Fetch results discarded because the context changed while in flight.",
		}, []string{"kind"}),
		triggerDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_dropped_total",
			Help:      "Refresh triggers ignored because a cycle was already in flight.",
		}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_failed_kinds",
			Help:      "Number of metric kinds that failed in the most recent cycle.",
		}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.kindFailures,
		m.pointsApplied,
		m.staleDropped,
		m.triggerDropped,
		m.lastFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every hostwatch collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CycleCompleted(mode monitor.CycleMode, failed int, duration time.Duration) {
	m.cycles.WithLabelValues(mode.String()).Inc()
	m.cycleDuration.WithLabelValues(mode.String()).Observe(duration.Seconds())
	m.lastFailed.Set(float64(failed))
}

func (m *Metrics) KindFailed(kind monitor.Kind, mode monitor.CycleMode) {
	m.kindFailures.WithLabelValues(string(kind), mode.String()).Inc()
}

func (m *Metrics) PointsApplied(kind monitor.Kind, mode monitor.CycleMode, n int) {
	if n <= 0 {
		return
	}
	m.pointsApplied.WithLabelValues(string(kind), mode.String()).Add(float64(n))
}

func (m *Metrics) StaleDropped(kind monitor.Kind) {
	m.staleDropped.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) TriggerDropped() {
	m.triggerDropped.Inc()
}
