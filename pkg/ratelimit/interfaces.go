// Package ratelimit implements token-bucket admission control with pluggable
// storage backends.
//
// A bucket holds up to Burst tokens and refills continuously at Rate tokens per
// second. Every check refills the bucket for the time elapsed since its last
// update and then tries to take the requested number of tokens. The refill and
// the take happen as one indivisible step inside the store, so concurrent
// checks for the same key can never both spend the same token.
//
// Two stores are provided:
//   - RedisBucketStore runs the whole check as a server-side Lua script and is
//     shared by every gateway replica.
//   - MemoryBucketStore keeps one golang.org/x/time/rate limiter per key inside
//     the process, for single-instance deployments and tests.
package ratelimit

import (
	"context"
	"time"
)

// BucketStore persists bucket state and performs the atomic refill-and-take.
//
// Take must behave as a single atomic operation per key:
//
//	tokens = min(burst, tokens + elapsed*rate)   // bucket starts full
//	if tokens >= requested: tokens -= requested; persist; allowed
//	else: leave state untouched; denied
//
// Remaining in the returned decision is floor(tokens) after the operation.
type BucketStore interface {
	Take(ctx context.Context, key string, limit Limit, now time.Time, requested int) (Decision, error)
}

// Metrics records limiter activity. Scope is a low-cardinality label such as
// the caller tier.
type Metrics interface {
	RecordAllowed(scope string)
	RecordDenied(scope string)
	RecordError(scope string)
	RecordCheckDuration(scope string, d time.Duration)
	SetActiveKeys(count int)
	RecordEviction(count int)
}

// Clock abstracts time so bucket refill can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
