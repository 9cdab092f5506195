package slo

import (
	"log/slog"
	"math"
	"net/http"
	"slices"
	"sync"
	"time"

	"parcel-gateway/internal/handler/http/responsewriter"
)

// DefaultMaxSamples bounds the latency samples kept per window.
const DefaultMaxSamples = 10_000

// Window is the summary of one flushed window.
type Window struct {
	Requests     int
	ServerErrors int
	Availability float64
	ErrorRate    float64
	P95          time.Duration
	P99          time.Duration
}

// Tracker accumulates request outcomes between flushes. Once the sample
// buffer is full, further latencies still count toward availability but
// are not sampled.
type Tracker struct {
	mu         sync.Mutex
	requests   int
	errors     int
	samples    []time.Duration
	maxSamples int
}

func NewTracker(maxSamples int) *Tracker {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Tracker{maxSamples: maxSamples}
}

// Observe records one completed request.
func (t *Tracker) Observe(status int, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests++
	if status >= 500 {
		t.errors++
	}
	if len(t.samples) < t.maxSamples {
		t.samples = append(t.samples, d)
	}
}

// Flush closes the current window, publishes it to the gauges and starts a
// new one. An empty window leaves the gauges untouched.
func (t *Tracker) Flush() Window {
	t.mu.Lock()
	requests, errs, samples := t.requests, t.errors, t.samples
	t.requests, t.errors, t.samples = 0, 0, make([]time.Duration, 0, len(samples))
	t.mu.Unlock()

	if requests == 0 {
		return Window{}
	}

	slices.Sort(samples)
	w := Window{
		Requests:     requests,
		ServerErrors: errs,
		Availability: float64(requests-errs) / float64(requests),
		ErrorRate:    float64(errs) / float64(requests),
		P95:          percentile(samples, 0.95),
		P99:          percentile(samples, 0.99),
	}

	UpdateAvailability(w.Availability)
	UpdateErrorRate(w.ErrorRate)
	UpdateLatencyP95(w.P95.Seconds())
	UpdateLatencyP99(w.P99.Seconds())

	if w.ErrorRate > ErrorRateSLO {
		slog.Warn("error rate above objective",
			slog.Int("requests", w.Requests),
			slog.Int("server_errors", w.ServerErrors),
			slog.Float64("error_rate", w.ErrorRate))
	}
	return w
}

// percentile uses the nearest-rank method on sorted samples.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// Middleware feeds every response into t.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := responsewriter.Wrap(w)
		next.ServeHTTP(rw, r)
		t.Observe(rw.StatusCode(), time.Since(start))
	})
}
