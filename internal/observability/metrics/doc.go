// Package metrics provides the gateway's Prometheus collectors and small
// recording helpers.
//
// Collectors register with the default registry through promauto and are
// exposed on /metrics. Label values are kept low-cardinality: tiers, features,
// upstream names, platforms and fixed outcome strings. User, worker and task
// identifiers never become labels.
//
// Example usage:
//
//	import "parcel-gateway/internal/observability/metrics"
//
//	metrics.RecordQuotaDecision("free", "search", allowed, err)
//	metrics.RecordUpstreamCall("parser", "success", time.Since(start))
package metrics
