// Package config assembles the gateway's runtime configuration from the
// environment and an optional upstream definition file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	envcfg "parcel-gateway/pkg/config"
	"parcel-gateway/pkg/ratelimit"

	"parcel-gateway/internal/upstream"
)

// Names of the backend services the gateway calls.
const (
	UpstreamParser = "parser"
	UpstreamML     = "ml"
	UpstreamProxy  = "proxy"
)

const minJWTSecretLength = 32

// UpstreamConfig describes one backend. Zero durations and thresholds fall
// back to the gateway-wide defaults.
type UpstreamConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig overrides the circuit breaker for one backend.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	SingleProbe      bool          `yaml:"single_probe"`
}

// Settings converts the override into breaker settings layered on defaults.
func (b BreakerConfig) Settings(defaults upstream.Settings) upstream.Settings {
	s := defaults
	if b.FailureThreshold > 0 {
		s.FailureThreshold = b.FailureThreshold
	}
	if b.RecoveryTimeout > 0 {
		s.RecoveryTimeout = b.RecoveryTimeout
	}
	if b.SingleProbe {
		s.SingleProbe = true
	}
	return s
}

// GatewayConfig is everything cmd/gateway needs to start.
type GatewayConfig struct {
	PublicAddr   string
	InternalAddr string
	MetricsAddr  string

	RedisURL    string
	DatabaseURL string

	WorkerTokens []string
	JWTSecret    string
	JWTIssuer    string
	DevAuth      bool

	Upstreams       map[string]UpstreamConfig
	UpstreamTimeout time.Duration
	ProxyTimeout    time.Duration
	Breaker         upstream.Settings

	RawStoragePath  string
	MaxBodyBytes    int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	PropertyTTL     time.Duration
	UpgradeURL      string
	Version         string

	RateLimit ratelimit.Config
}

// LoadGatewayConfig reads GATEWAY_* variables. Malformed values fall back to
// defaults with a warning; the result still has to pass Validate.
//
// When GATEWAY_UPSTREAMS_FILE is set, its entries override the URL, timeout
// and breaker settings of the matching upstream.
func LoadGatewayConfig() (*GatewayConfig, error) {
	breaker := upstream.DefaultSettings()
	cfg := &GatewayConfig{
		PublicAddr:   envcfg.GetEnvString("GATEWAY_PUBLIC_ADDR", ":8080"),
		InternalAddr: envcfg.GetEnvString("GATEWAY_INTERNAL_ADDR", ":8081"),
		MetricsAddr:  envcfg.GetEnvString("GATEWAY_METRICS_ADDR", ":9090"),

		RedisURL:    envcfg.GetEnvString("GATEWAY_REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL: envcfg.GetEnvString("GATEWAY_DATABASE_URL", envcfg.GetEnvString("DATABASE_URL", "")),

		WorkerTokens: workerTokens(),
		JWTSecret:    envcfg.GetEnvString("GATEWAY_JWT_SECRET", ""),
		JWTIssuer:    envcfg.GetEnvString("GATEWAY_JWT_ISSUER", ""),
		DevAuth:      envcfg.GetEnvBool("GATEWAY_DEV_AUTH", false),

		UpstreamTimeout: envcfg.GetEnvDuration("GATEWAY_UPSTREAM_TIMEOUT", 30*time.Second),
		ProxyTimeout:    envcfg.GetEnvDuration("GATEWAY_PROXY_TIMEOUT", 10*time.Second),
		Breaker: upstream.Settings{
			FailureThreshold: envcfg.GetEnvInt("GATEWAY_BREAKER_THRESHOLD", breaker.FailureThreshold),
			RecoveryTimeout:  envcfg.GetEnvDuration("GATEWAY_BREAKER_RECOVERY", breaker.RecoveryTimeout),
			SingleProbe:      envcfg.GetEnvBool("GATEWAY_BREAKER_SINGLE_PROBE", false),
		},

		RawStoragePath:  envcfg.GetEnvString("GATEWAY_RAW_STORAGE_PATH", "/data/raw"),
		MaxBodyBytes:    int64(envcfg.GetEnvInt("GATEWAY_MAX_BODY_BYTES", 10<<20)),
		RequestTimeout:  envcfg.GetEnvDuration("GATEWAY_REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout: envcfg.GetEnvDuration("GATEWAY_SHUTDOWN_TIMEOUT", 10*time.Second),
		PropertyTTL:     envcfg.GetEnvDuration("GATEWAY_PROPERTY_CACHE_TTL", time.Hour),
		UpgradeURL:      envcfg.GetEnvString("GATEWAY_UPGRADE_URL", "/pricing"),
		Version:         envcfg.GetEnvString("VERSION", "dev"),

		RateLimit: envcfg.LoadRateLimitConfig(),
	}

	cfg.Upstreams = map[string]UpstreamConfig{
		UpstreamParser: {URL: envcfg.GetEnvString("GATEWAY_PARSER_URL", "http://localhost:8001")},
		UpstreamML:     {URL: envcfg.GetEnvString("GATEWAY_ML_URL", "http://localhost:8002")},
		UpstreamProxy:  {URL: envcfg.GetEnvString("GATEWAY_PROXY_URL", "http://localhost:8003"), Timeout: cfg.ProxyTimeout},
	}

	if path := envcfg.GetEnvString("GATEWAY_UPSTREAMS_FILE", ""); path != "" {
		file, err := LoadUpstreamsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Upstreams = MergeUpstreams(cfg.Upstreams, file)
		slog.Info("upstream definitions loaded", slog.String("path", path), slog.Int("count", len(file)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// workerTokens accepts a list in GATEWAY_WORKER_TOKENS and the single
// GATEWAY_INTERNAL_TOKEN, in that order.
func workerTokens() []string {
	tokens := envcfg.GetEnvStringList("GATEWAY_WORKER_TOKENS", nil)
	if single := strings.TrimSpace(envcfg.GetEnvString("GATEWAY_INTERNAL_TOKEN", "")); single != "" {
		tokens = append(tokens, single)
	}
	return tokens
}

// Validate reports every problem at once.
func (c *GatewayConfig) Validate() error {
	var errs []error

	if !c.DevAuth && len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("GATEWAY_JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if len(c.WorkerTokens) == 0 {
		errs = append(errs, errors.New("GATEWAY_WORKER_TOKENS or GATEWAY_INTERNAL_TOKEN is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("GATEWAY_REDIS_URL is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("GATEWAY_DATABASE_URL is required"))
	}
	if c.Breaker.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("breaker threshold must be at least 1, got %d", c.Breaker.FailureThreshold))
	}
	if err := envcfg.ValidatePositiveDuration(c.Breaker.RecoveryTimeout); err != nil {
		errs = append(errs, fmt.Errorf("breaker recovery: %w", err))
	}
	if err := envcfg.ValidateDurationRange(c.UpstreamTimeout, 100*time.Millisecond, 5*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("upstream timeout: %w", err))
	}
	if c.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes))
	}
	for _, name := range []string{UpstreamParser, UpstreamML, UpstreamProxy} {
		if u, ok := c.Upstreams[name]; !ok || u.URL == "" {
			errs = append(errs, fmt.Errorf("upstream %q has no url", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid gateway configuration: %w", errors.Join(errs...))
	}
	return nil
}

// TimeoutFor returns the call timeout of the named upstream.
func (c *GatewayConfig) TimeoutFor(name string) time.Duration {
	if u, ok := c.Upstreams[name]; ok && u.Timeout > 0 {
		return u.Timeout
	}
	return c.UpstreamTimeout
}

// BreakerOverrides returns registry options for upstreams that tune their breaker.
func (c *GatewayConfig) BreakerOverrides() []upstream.RegistryOption {
	var opts []upstream.RegistryOption
	for name, u := range c.Upstreams {
		if u.Breaker != (BreakerConfig{}) {
			opts = append(opts, upstream.WithOverride(name, u.Breaker.Settings(c.Breaker)))
		}
	}
	return opts
}
