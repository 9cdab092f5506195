// Package tracing wires OpenTelemetry into the gateway: Setup installs the
// SDK provider and propagators, and Middleware opens one server span per
// request. Upstream client spans are children of these spans.
package tracing
