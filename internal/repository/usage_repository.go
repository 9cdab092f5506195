package repository

import (
	"context"
	"time"
)

// UsageCounterRepository stores integer counters with expiry.
type UsageCounterRepository interface {
	// Increment atomically adds one to key and returns the new value. A key
	// left without an expiry gets ttl in the same round trip; an existing
	// expiry is kept.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Get returns the value of each key in order; missing keys read as 0.
	Get(ctx context.Context, keys ...string) ([]int64, error)
}
