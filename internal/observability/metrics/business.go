package metrics

import (
	"strconv"
	"time"
)

// RecordQuotaDecision records the result of a daily quota check.
func RecordQuotaDecision(tier, feature string, allowed bool, err error) {
	outcome := "allowed"
	switch {
	case err != nil:
		outcome = "error"
	case !allowed:
		outcome = "rejected"
	}
	QuotaDecisionsTotal.WithLabelValues(tier, feature, outcome).Inc()
}

// RecordUpstreamCall records one outbound call. Duration is ignored for calls
// that never left the process (circuit_open).
func RecordUpstreamCall(upstream, outcome string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(upstream, outcome).Inc()
	if outcome != "circuit_open" {
		UpstreamRequestDuration.WithLabelValues(upstream).Observe(duration.Seconds())
	}
}

// SetCircuitState publishes a breaker state code (0 closed, 1 open, 2 half-open).
func SetCircuitState(upstream string, code int) {
	CircuitBreakerState.WithLabelValues(upstream).Set(float64(code))
}

// RecordCacheLookup records a property cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		PropertyCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	PropertyCacheTotal.WithLabelValues("miss").Inc()
}

// RecordEnqueue records a task pushed onto a lane.
func RecordEnqueue(platform string, priority int) {
	TasksEnqueuedTotal.WithLabelValues(platform, strconv.Itoa(priority)).Inc()
}

// RecordCheckout records n tasks handed to a worker from platform.
func RecordCheckout(platform string, n int) {
	if n > 0 {
		TasksCheckedOutTotal.WithLabelValues(platform).Add(float64(n))
	}
}

// RecordAcknowledge records whether an acknowledge found its task.
func RecordAcknowledge(removed bool) {
	if removed {
		TasksAcknowledgedTotal.WithLabelValues("removed").Inc()
		return
	}
	TasksAcknowledgedTotal.WithLabelValues("missing").Inc()
}

// RecordResults records the outcome counts of one result batch.
func RecordResults(inserted, updated, failed int) {
	ResultsSubmittedTotal.WithLabelValues("inserted").Add(float64(inserted))
	ResultsSubmittedTotal.WithLabelValues("updated").Add(float64(updated))
	ResultsSubmittedTotal.WithLabelValues("failed").Add(float64(failed))
}

// SetQueueDepth publishes a sampled lane length.
func SetQueueDepth(platform string, priority int, depth int64) {
	QueueDepth.WithLabelValues(platform, strconv.Itoa(priority)).Set(float64(depth))
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "upsert_parcel").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
