package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics records limiter activity on a private registry, which the
// caller exposes next to the default one (see Registry).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// decisionsTotal counts checks by tier and outcome (allowed, denied, error).
	decisionsTotal *prometheus.CounterVec

	// checkDuration covers the store round trip. Redis checks should stay
	// well under 5ms; the upper buckets catch a struggling store.
	checkDuration *prometheus.HistogramVec

	activeKeys     prometheus.Gauge
	evictionsTotal prometheus.Counter
}

// NewPrometheusMetrics creates the collectors and registers them on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_rate_limit_decisions_total",
				Help: "Token bucket checks by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_rate_limit_check_duration_seconds",
				Help:    "Duration of token bucket checks",
				Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
			},
			[]string{"tier"},
		),
		activeKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_rate_limit_memory_keys",
			Help: "Buckets held by the in-memory store",
		}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limit_memory_evictions_total",
			Help: "Buckets evicted from the in-memory store",
		}),
	}

	m.registry.MustRegister(m.decisionsTotal, m.checkDuration, m.activeKeys, m.evictionsTotal)
	return m
}

// Registry returns the registry holding the limiter collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) RecordAllowed(scope string) {
	m.decisionsTotal.WithLabelValues(scope, "allowed").Inc()
}

func (m *PrometheusMetrics) RecordDenied(scope string) {
	m.decisionsTotal.WithLabelValues(scope, "denied").Inc()
}

func (m *PrometheusMetrics) RecordError(scope string) {
	m.decisionsTotal.WithLabelValues(scope, "error").Inc()
}

func (m *PrometheusMetrics) RecordCheckDuration(scope string, d time.Duration) {
	m.checkDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (m *PrometheusMetrics) SetActiveKeys(count int) {
	m.activeKeys.Set(float64(count))
}

func (m *PrometheusMetrics) RecordEviction(count int) {
	m.evictionsTotal.Add(float64(count))
}
