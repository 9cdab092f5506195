package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-gateway/internal/upstream"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// requiredEnv sets the minimum a valid configuration needs.
func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_JWT_SECRET", testSecret)
	t.Setenv("GATEWAY_WORKER_TOKENS", "tok-a, tok-b")
	t.Setenv("GATEWAY_DATABASE_URL", "postgres://gw@localhost/gw")
}

func TestLoadGatewayConfig_Defaults(t *testing.T) {
	requiredEnv(t)

	cfg, err := LoadGatewayConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.PublicAddr)
	assert.Equal(t, ":8081", cfg.InternalAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, []string{"tok-a", "tok-b"}, cfg.WorkerTokens)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, upstream.DefaultSettings(), cfg.Breaker)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, time.Hour, cfg.PropertyTTL)
	assert.Equal(t, "/pricing", cfg.UpgradeURL)
	assert.Equal(t, 30*time.Second, cfg.TimeoutFor(UpstreamParser))
	assert.Equal(t, 10*time.Second, cfg.TimeoutFor(UpstreamProxy))
	assert.Empty(t, cfg.BreakerOverrides())
}

func TestLoadGatewayConfig_InternalTokenAppended(t *testing.T) {
	requiredEnv(t)
	t.Setenv("GATEWAY_WORKER_TOKENS", "")
	t.Setenv("GATEWAY_INTERNAL_TOKEN", " legacy ")

	cfg, err := LoadGatewayConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy"}, cfg.WorkerTokens)
}

func TestLoadGatewayConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"short secret", map[string]string{"GATEWAY_JWT_SECRET": "short"}, "GATEWAY_JWT_SECRET"},
		{"no worker tokens", map[string]string{"GATEWAY_WORKER_TOKENS": ""}, "GATEWAY_WORKER_TOKENS"},
		{"zero threshold", map[string]string{"GATEWAY_BREAKER_THRESHOLD": "0"}, "breaker threshold"},
		{"huge timeout", map[string]string{"GATEWAY_UPSTREAM_TIMEOUT": "1h"}, "upstream timeout"},
		{"no parser url", map[string]string{"GATEWAY_PARSER_URL": ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadGatewayConfig()
			if tt.wantErr == "" {
				// An empty URL env var means "use the default".
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadGatewayConfig_DevAuthSkipsSecret(t *testing.T) {
	requiredEnv(t)
	t.Setenv("GATEWAY_JWT_SECRET", "")
	t.Setenv("GATEWAY_DEV_AUTH", "true")

	cfg, err := LoadGatewayConfig()
	require.NoError(t, err)
	assert.True(t, cfg.DevAuth)
}

func TestLoadGatewayConfig_UpstreamsFile(t *testing.T) {
	requiredEnv(t)
	path := filepath.Join(t.TempDir(), "upstreams.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
upstreams:
  parser:
    url: http://parser.internal:8000
    timeout: 5s
    breaker:
      failure_threshold: 2
      single_probe: true
`)), 0o600))
	t.Setenv("GATEWAY_UPSTREAMS_FILE", path)

	cfg, err := LoadGatewayConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://parser.internal:8000", cfg.Upstreams[UpstreamParser].URL)
	assert.Equal(t, 5*time.Second, cfg.TimeoutFor(UpstreamParser))
	assert.Equal(t, "http://localhost:8002", cfg.Upstreams[UpstreamML].URL)
	assert.Len(t, cfg.BreakerOverrides(), 1)

	settings := cfg.Upstreams[UpstreamParser].Breaker.Settings(cfg.Breaker)
	assert.Equal(t, upstream.Settings{FailureThreshold: 2, RecoveryTimeout: 30 * time.Second, SingleProbe: true}, settings)
}

func TestLoadGatewayConfig_MissingFile(t *testing.T) {
	requiredEnv(t)
	t.Setenv("GATEWAY_UPSTREAMS_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadGatewayConfig()
	assert.ErrorContains(t, err, "read upstreams file")
}
