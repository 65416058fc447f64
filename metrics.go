package bishop

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics tracks Prometheus metrics for one Instance's dispatcher,
// grounded on internal/business/routing's matcher_metrics.go /
// evaluator_metrics.go promauto+Namespace/Subsystem convention
// (namespace "bishop", subsystem "dispatch").
//
// Unlike the teacher, which registers against the global default
// registry, each Instance owns a private *prometheus.Registry: the
// teacher's service constructs exactly one RouteMatcher per process,
// but an Instance here may be constructed repeatedly (tests, embedding
// multiple meshes in one binary) and promauto would panic on the
// second registration of the same metric name against the default
// registry.
type metrics struct {
	registry *prometheus.Registry

	dispatchDuration *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	slowCalls        prometheus.Counter
}

func newMetrics() (*metrics, error) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,

		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bishop",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Time to execute one act() call end to end.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"outcome"},
		),

		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bishop",
				Subsystem: "dispatch",
				Name:      "total",
				Help:      "Total number of act() calls by outcome.",
			},
			[]string{"outcome"},
		),

		slowCalls: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bishop",
				Subsystem: "dispatch",
				Name:      "slow_calls_total",
				Help:      "Total number of act() calls that exceeded the slow threshold.",
			},
		),
	}, nil
}

func (m *metrics) recordDispatch(outcome string, elapsed time.Duration) {
	m.dispatchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.dispatchTotal.WithLabelValues(outcome).Inc()
}

// MetricsRegistry returns the Prometheus registry holding this
// Instance's dispatch metrics, for callers wiring their own
// /metrics exposition (exposing it over HTTP is out of scope, §1).
func (in *Instance) MetricsRegistry() *prometheus.Registry {
	return in.metrics.registry
}
