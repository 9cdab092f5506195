package config

import (
	"log/slog"
	"strings"

	"parcel-gateway/pkg/ratelimit"
)

// LoadRateLimitConfig reads limiter settings from the environment. Invalid
// values are replaced by defaults with a warning; the function never fails.
//
// Environment variables:
//   - GATEWAY_RATELIMIT_ENABLED: turn admission control on or off (default: true)
//   - GATEWAY_RATELIMIT_BACKEND: "redis" or "memory" (default: redis)
//   - GATEWAY_RATELIMIT_KEY_PREFIX: bucket key prefix (default: ratelimit)
//   - GATEWAY_RATELIMIT_BUCKET_TTL: idle bucket lifetime in Redis (default: 1h)
//   - GATEWAY_RATELIMIT_MAX_KEYS: bucket cap for the memory backend (default: 10000)
func LoadRateLimitConfig() ratelimit.Config {
	defaults := ratelimit.DefaultConfig()

	cfg := ratelimit.Config{
		Enabled:   GetEnvBool("GATEWAY_RATELIMIT_ENABLED", defaults.Enabled),
		Backend:   strings.ToLower(GetEnvString("GATEWAY_RATELIMIT_BACKEND", defaults.Backend)),
		KeyPrefix: GetEnvString("GATEWAY_RATELIMIT_KEY_PREFIX", defaults.KeyPrefix),
		BucketTTL: GetEnvDuration("GATEWAY_RATELIMIT_BUCKET_TTL", defaults.BucketTTL),
		MaxKeys:   GetEnvInt("GATEWAY_RATELIMIT_MAX_KEYS", defaults.MaxKeys),
	}

	if cfg.Backend != ratelimit.BackendRedis && cfg.Backend != ratelimit.BackendMemory {
		slog.Warn("unknown GATEWAY_RATELIMIT_BACKEND, using default",
			slog.String("value", cfg.Backend),
			slog.String("default", defaults.Backend))
		cfg.Backend = defaults.Backend
	}
	if err := ValidateDurationRange(cfg.BucketTTL, defaults.BucketTTL/60, 24*defaults.BucketTTL); err != nil {
		slog.Warn("invalid GATEWAY_RATELIMIT_BUCKET_TTL, using default",
			slog.String("error", err.Error()),
			slog.Duration("default", defaults.BucketTTL))
		cfg.BucketTTL = defaults.BucketTTL
	}
	if cfg.MaxKeys < 1 {
		slog.Warn("invalid GATEWAY_RATELIMIT_MAX_KEYS, using default",
			slog.Int("value", cfg.MaxKeys),
			slog.Int("default", defaults.MaxKeys))
		cfg.MaxKeys = defaults.MaxKeys
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}

	return cfg
}
