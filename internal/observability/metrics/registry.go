// Package metrics provides centralized Prometheus metrics for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admission metrics cover quota decisions. Token bucket decisions live on the
// limiter's own registry (pkg/ratelimit).
var (
	// QuotaDecisionsTotal counts quota checks by tier, feature and outcome
	// (allowed, rejected, error).
	QuotaDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_quota_decisions_total",
			Help: "Daily quota checks by tier, feature and outcome",
		},
		[]string{"tier", "feature", "outcome"},
	)

	// RateLimitStoreFailuresTotal counts requests let through because the
	// bucket store could not be reached.
	RateLimitStoreFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_rate_limit_fail_open_total",
			Help: "Requests admitted without a rate limit decision because the store failed",
		},
	)
)

// Upstream metrics
var (
	// UpstreamRequestsTotal counts outbound calls by upstream and outcome
	// (success, client_error, server_error, transport_error, circuit_open).
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_requests_total",
			Help: "Outbound upstream calls by service and outcome",
		},
		[]string{"upstream", "outcome"},
	)

	// UpstreamRequestDuration measures completed outbound calls.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_request_duration_seconds",
			Help:    "Outbound upstream call duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"upstream"},
	)

	// CircuitBreakerState is 0 closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"upstream"},
	)

	// PropertyCacheTotal counts property detail lookups by result (hit, miss).
	PropertyCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_property_cache_total",
			Help: "Property detail cache lookups by result",
		},
		[]string{"result"},
	)
)

// Worker queue metrics
var (
	TasksEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tasks_enqueued_total",
			Help: "Tasks pushed onto a queue lane",
		},
		[]string{"platform", "priority"},
	)

	TasksCheckedOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tasks_checked_out_total",
			Help: "Tasks moved from a queue lane into a worker processing set",
		},
		[]string{"platform"},
	)

	// TasksAcknowledgedTotal has result "removed" or "missing".
	TasksAcknowledgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tasks_acknowledged_total",
			Help: "Acknowledge calls by result",
		},
		[]string{"result"},
	)

	TasksFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_tasks_failed_total",
			Help: "Task failures reported by workers",
		},
	)

	// ResultsSubmittedTotal has result "inserted", "updated" or "failed".
	ResultsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_results_submitted_total",
			Help: "Parcel results submitted by workers",
		},
		[]string{"result"},
	)

	HeartbeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_worker_heartbeats_total",
			Help: "Worker heartbeats received",
		},
	)

	// QueueDepth is sampled by the queue monitor.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_queue_depth",
			Help: "Tasks waiting per lane",
		},
		[]string{"platform", "priority"},
	)

	// LiveWorkers is sampled by the queue monitor.
	LiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_live_workers",
			Help: "Workers with an unexpired heartbeat record",
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)
