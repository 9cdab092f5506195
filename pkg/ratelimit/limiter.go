package ratelimit

import (
	"context"
	"fmt"
	"strings"
)

// Limiter checks callers against token buckets held in a BucketStore.
// It is safe for concurrent use; all per-key serialisation happens in the store.
type Limiter struct {
	store     BucketStore
	clock     Clock
	metrics   Metrics
	keyPrefix string
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithKeyPrefix overrides the default "ratelimit" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) { l.keyPrefix = strings.TrimSuffix(prefix, ":") }
}

// NewLimiter creates a Limiter on store.
func NewLimiter(store BucketStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:     store,
		clock:     SystemClock{},
		metrics:   NoOpMetrics{},
		keyPrefix: DefaultConfig().KeyPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the bucket key for scope and identifier: "<prefix>:<scope>:<identifier>".
func (l *Limiter) Key(scope, identifier string) string {
	return l.keyPrefix + ":" + scope + ":" + identifier
}

// Allow takes one token from the bucket for (scope, identifier).
func (l *Limiter) Allow(ctx context.Context, scope, identifier string, limit Limit) (Decision, error) {
	return l.AllowN(ctx, scope, identifier, limit, 1)
}

// AllowN takes n tokens from the bucket for (scope, identifier).
func (l *Limiter) AllowN(ctx context.Context, scope, identifier string, limit Limit, n int) (Decision, error) {
	if err := limit.Validate(); err != nil {
		return Decision{}, fmt.Errorf("limit for %s: %w", scope, err)
	}
	if n < 1 {
		return Decision{}, fmt.Errorf("requested tokens must be positive, got %d", n)
	}

	start := l.clock.Now()
	d, err := l.store.Take(ctx, l.Key(scope, identifier), limit, start, n)
	l.metrics.RecordCheckDuration(scope, l.clock.Now().Sub(start))
	if err != nil {
		l.metrics.RecordError(scope)
		return Decision{}, err
	}

	if d.Allowed {
		l.metrics.RecordAllowed(scope)
	} else {
		l.metrics.RecordDenied(scope)
	}
	return d, nil
}
