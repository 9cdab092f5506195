package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"parcel-gateway/internal/pkg/config"
)

// Metrics describes the sampling job itself. The sampled values go to the
// gateway-wide gauges in the metrics package.
type Metrics struct {
	*config.ConfigMetrics

	RunsTotal            *prometheus.CounterVec
	RunDurationSeconds   prometheus.Histogram
	LastSuccessTimestamp prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "queue_monitor"),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_monitor_runs_total",
			Help: "Sampling runs by status",
		}, []string{"status"}),
		RunDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_monitor_run_duration_seconds",
			Help:    "Duration of a sampling run",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5},
		}),
		LastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "queue_monitor_last_success_timestamp",
			Help: "Unix timestamp of the last complete sampling run",
		}),
	}
}

func (m *Metrics) RecordRun(status string, seconds float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(seconds)
	if status == "success" {
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
}
