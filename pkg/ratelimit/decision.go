package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	// Key is the full bucket key that was checked.
	Key string

	// Allowed reports whether the tokens were taken.
	Allowed bool

	// Remaining is the whole number of tokens left in the bucket.
	Remaining int

	// Limit is the bucket shape used for the check.
	Limit Limit
}

// RetryAfter estimates how long until one more token is available.
// It is zero for allowed decisions and for buckets that still hold a token.
func (d Decision) RetryAfter() time.Duration {
	if d.Allowed || d.Remaining >= 1 || d.Limit.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / d.Limit.Rate)
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds for the Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter().Seconds()))
}

func (d Decision) String() string {
	verdict := "denied"
	if d.Allowed {
		verdict = "allowed"
	}
	return fmt.Sprintf("Decision{%s key=%s remaining=%d/%d}", verdict, d.Key, d.Remaining, d.Limit.Burst)
}
