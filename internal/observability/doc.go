// Package observability groups the gateway's telemetry:
//
//   - logging: slog setup and the request-scoped logger
//   - metrics: Prometheus collectors for admission, upstreams and the queue
//   - tracing: OpenTelemetry provider setup and server spans
//   - slo: rolling availability, error rate and latency gauges
package observability
