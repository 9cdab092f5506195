// Package monitor samples the task queue on a cron schedule and publishes
// lane depths and the live worker count as gauges.
package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/pkg/config"
)

// Config controls the sampling job.
type Config struct {
	// Schedule is a cron expression or descriptor, e.g. "@every 30s".
	Schedule string
	Timezone string
	// Platforms whose lanes are sampled.
	Platforms     []string
	SampleTimeout time.Duration
	HealthPort    int
	RedisURL      string
}

func DefaultConfig() Config {
	return Config{
		Schedule:      "@every 30s",
		Timezone:      "UTC",
		Platforms:     []string{"beacon", "qpublic", "floridatax"},
		SampleTimeout: 10 * time.Second,
		HealthPort:    9091,
		RedisURL:      "redis://localhost:6379/0",
	}
}

func (c *Config) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if len(c.Platforms) == 0 {
		errs = append(errs, errors.New("platforms: at least one is required"))
	}
	for _, p := range c.Platforms {
		if err := entity.ValidatePlatform(p); err != nil {
			errs = append(errs, fmt.Errorf("platforms: %w", err))
		}
	}
	if err := config.ValidateDuration(c.SampleTimeout, time.Second, 5*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("sample timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	return errors.Join(errs...)
}

// LoadConfigFromEnv reads QUEUE_MONITOR_* variables. Invalid values fall back
// to defaults; each fallback is logged and counted in metrics.
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) *Config {
	cfg := DefaultConfig()
	fallback := false

	note := func(field, warning string, applied bool) {
		if !applied {
			return
		}
		fallback = true
		metrics.RecordFallback(field)
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	s := config.LoadEnvWithFallback("QUEUE_MONITOR_SCHEDULE", cfg.Schedule, config.ValidateCronSchedule)
	cfg.Schedule = s.Value
	note("schedule", s.Warning, s.FallbackApplied)

	tz := config.LoadEnvWithFallback("QUEUE_MONITOR_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	note("timezone", tz.Warning, tz.FallbackApplied)

	p := config.LoadEnvList("QUEUE_MONITOR_PLATFORMS", cfg.Platforms, entity.ValidatePlatform)
	cfg.Platforms = p.Value
	note("platforms", p.Warning, p.FallbackApplied)

	d := config.LoadEnvDuration("QUEUE_MONITOR_SAMPLE_TIMEOUT", cfg.SampleTimeout, func(v time.Duration) error {
		return config.ValidateDuration(v, time.Second, 5*time.Minute)
	})
	cfg.SampleTimeout = d.Value
	note("sample_timeout", d.Warning, d.FallbackApplied)

	port := config.LoadEnvInt("QUEUE_MONITOR_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = port.Value
	note("health_port", port.Warning, port.FallbackApplied)

	cfg.RedisURL = config.LoadEnvWithFallback("GATEWAY_REDIS_URL", cfg.RedisURL, nil).Value

	metrics.SetFallbackActive(fallback)
	metrics.RecordLoadTimestamp()
	return &cfg
}
