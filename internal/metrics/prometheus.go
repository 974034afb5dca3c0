package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Collector with Prometheus metrics.
type Prometheus struct {
	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	syncItems    *prometheus.CounterVec
	cursor       *prometheus.GaugeVec
	circuitState *prometheus.GaugeVec
	circuitOpens *prometheus.CounterVec
	materialized prometheus.Counter
}

// NewPrometheus creates a collector whose metric names start with namespace.
func NewPrometheus(namespace string) *Prometheus {
	return &Prometheus{
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Sync runs per entity kind and outcome",
			},
			[]string{"entity", "outcome"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of sync runs that were not skipped",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"entity"},
		),
		syncItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_items_total",
				Help:      "Records processed per entity kind, phase and result",
			},
			[]string{"entity", "phase", "result"},
		),
		cursor: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_cursor_timestamp_seconds",
				Help:      "Pull cursor per entity kind as a Unix timestamp",
			},
			[]string{"entity"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Times the circuit breaker opened",
			},
			[]string{"name"},
		),
		materialized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_materialized_total",
				Help:      "Pending transaction instances created from planned payment rules",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (p *Prometheus) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		p.syncRuns,
		p.syncDuration,
		p.syncItems,
		p.cursor,
		p.circuitState,
		p.circuitOpens,
		p.materialized,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// RecordSyncRun records one sync run.
func (p *Prometheus) RecordSyncRun(kind string, ok, skipped bool, duration time.Duration) {
	outcome := "ok"
	switch {
	case skipped:
		outcome = "skipped"
	case !ok:
		outcome = "partial"
	}
	p.syncRuns.WithLabelValues(kind, outcome).Inc()
	if !skipped {
		p.syncDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordSyncItem records one pushed, deleted or pulled record.
func (p *Prometheus) RecordSyncItem(kind, phase string, success bool) {
	p.syncItems.WithLabelValues(kind, phase, result(success)).Inc()
}

// RecordCursor records the new pull cursor.
func (p *Prometheus) RecordCursor(kind string, at time.Time) {
	p.cursor.WithLabelValues(kind).Set(float64(at.Unix()))
}

// RecordCircuitState records a breaker state transition.
func (p *Prometheus) RecordCircuitState(name string, state CircuitState) {
	p.circuitState.WithLabelValues(name).Set(float64(state))
	if state == CircuitOpen {
		p.circuitOpens.WithLabelValues(name).Inc()
	}
}

// InstancesMaterialized adds n created instances.
func (p *Prometheus) InstancesMaterialized(n int) {
	if n > 0 {
		p.materialized.Add(float64(n))
	}
}
