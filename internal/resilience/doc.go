// Package resilience groups the gateway's fault-tolerance helpers.
//
//   - circuitbreaker wraps Postgres access in a sony/gobreaker breaker.
//   - retry dials Redis and Postgres at startup with exponential backoff.
//
// Outbound HTTP calls to upstream services are guarded separately by
// internal/upstream.
package resilience
