package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resolutionsTotal counts resolved requests by tier and result.
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_resolutions_total",
			Help: "Credential resolutions by resulting tier and result",
		},
		[]string{"tier", "result"}, // result: success | unauthorized | forbidden
	)

	resolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_auth_resolve_duration_seconds",
			Help:    "Time spent resolving request credentials",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)
)

func recordResolution(tier, result string, seconds float64) {
	resolutionsTotal.WithLabelValues(tier, result).Inc()
	resolveDuration.Observe(seconds)
}
