package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Limit is the shape of one token bucket.
type Limit struct {
	// Rate is the refill rate in tokens per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
}

// Validate rejects buckets that could never admit a request.
func (l Limit) Validate() error {
	if l.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %v", l.Rate)
	}
	if l.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", l.Burst)
	}
	return nil
}

// FullAfter is how long an empty bucket needs to refill completely.
func (l Limit) FullAfter() time.Duration {
	return time.Duration(float64(l.Burst) / l.Rate * float64(time.Second))
}

// Config holds limiter wiring settings.
type Config struct {
	// Enabled turns admission control on. When false every request passes.
	Enabled bool

	// Backend selects the bucket store ("redis" or "memory").
	Backend string

	// KeyPrefix is prepended to every bucket key. Default: "ratelimit".
	KeyPrefix string

	// BucketTTL is how long an idle bucket survives in Redis. Default: 1h.
	BucketTTL time.Duration

	// MaxKeys bounds the memory backend. Default: 10000.
	MaxKeys int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Backend:   BackendRedis,
		KeyPrefix: "ratelimit",
		BucketTTL: time.Hour,
		MaxKeys:   10000,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	var errs []error
	if c.Backend != BackendRedis && c.Backend != BackendMemory {
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendRedis, BackendMemory, c.Backend))
	}
	if c.KeyPrefix == "" {
		errs = append(errs, errors.New("key prefix must not be empty"))
	}
	if c.BucketTTL < time.Second {
		errs = append(errs, fmt.Errorf("bucket ttl must be at least 1s, got %v", c.BucketTTL))
	}
	if c.MaxKeys < 1 {
		errs = append(errs, fmt.Errorf("max keys must be positive, got %d", c.MaxKeys))
	}
	return errors.Join(errs...)
}
