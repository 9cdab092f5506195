// Package slo tracks the gateway's service level indicators over rolling
// windows and publishes them as gauges next to their targets.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Targets.
const (
	// AvailabilitySLO is a percentage of non-5xx responses.
	AvailabilitySLO = 99.9
	LatencyP95SLO   = 0.200
	LatencyP99SLO   = 0.500
	ErrorRateSLO    = 0.001
)

// Gauges hold the value measured over the last completed window.
var (
	SLOAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_slo_availability_ratio",
			Help: "Share of non-5xx responses in the last window, target: 0.999",
		},
	)

	SLOLatencyP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_slo_latency_p95_seconds",
			Help: "p95 request latency in the last window, target: 0.200",
		},
	)

	SLOLatencyP99 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_slo_latency_p99_seconds",
			Help: "p99 request latency in the last window, target: 0.500",
		},
	)

	SLOErrorRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_slo_error_rate_ratio",
			Help: "Share of 5xx responses in the last window, target: 0.001",
		},
	)
)

func UpdateAvailability(ratio float64) { SLOAvailability.Set(ratio) }
func UpdateLatencyP95(seconds float64) { SLOLatencyP95.Set(seconds) }
func UpdateLatencyP99(seconds float64) { SLOLatencyP99.Set(seconds) }
func UpdateErrorRate(ratio float64)    { SLOErrorRate.Set(ratio) }
