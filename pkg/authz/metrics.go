package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the authorization engine.
type Metrics struct {
	// Decision outcomes
	decisions *prometheus.CounterVec

	// Snapshot lifecycle
	snapshotUpdates prometheus.Counter

	// Evaluation latency
	evalDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance registered with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewMetricsWithRegisterer creates a Metrics instance registered with a
// specific registerer. Useful for tests that construct multiple engines.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_authz_decisions_total",
				Help: "Total number of authorization decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),

		snapshotUpdates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sentinel_authz_snapshot_updates_total",
				Help: "Total number of configuration snapshot replacements applied",
			},
		),

		evalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentinel_authz_evaluation_duration_seconds",
				Help:    "Duration of policy evaluation in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),
	}
}

// RecordDecision records a single authorization decision.
func (m *Metrics) RecordDecision(d Decision) {
	outcome := "allow"
	if !d.Allowed {
		outcome = "deny"
	}
	m.decisions.WithLabelValues(outcome, string(d.Reason)).Inc()
}

// RecordSnapshotUpdate records a snapshot replacement.
func (m *Metrics) RecordSnapshotUpdate() {
	m.snapshotUpdates.Inc()
}

// RecordEvalDuration records the duration of one evaluation in seconds.
func (m *Metrics) RecordEvalDuration(seconds float64) {
	m.evalDuration.Observe(seconds)
}
