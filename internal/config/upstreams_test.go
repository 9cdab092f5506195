package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpstreams(t *testing.T) {
	got, err := ParseUpstreams([]byte(`
upstreams:
  ml:
    url: https://ml.internal
    timeout: 45s
  proxy:
    breaker:
      recovery_timeout: 1m
`))
	require.NoError(t, err)

	assert.Equal(t, UpstreamConfig{URL: "https://ml.internal", Timeout: 45 * time.Second}, got["ml"])
	assert.Equal(t, time.Minute, got["proxy"].Breaker.RecoveryTimeout)
}

func TestParseUpstreams_Empty(t *testing.T) {
	got, err := ParseUpstreams(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseUpstreams_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "upstreams:\n  ml:\n    uri: http://x\n"},
		{"relative url", "upstreams:\n  ml:\n    url: /ml\n"},
		{"ftp url", "upstreams:\n  ml:\n    url: ftp://ml\n"},
		{"negative timeout", "upstreams:\n  ml:\n    timeout: -1s\n"},
		{"bad duration", "upstreams:\n  ml:\n    timeout: soon\n"},
		{"not yaml", "upstreams: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUpstreams([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestMergeUpstreams(t *testing.T) {
	base := map[string]UpstreamConfig{
		"parser": {URL: "http://a", Timeout: time.Second},
		"ml":     {URL: "http://b"},
	}
	file := map[string]UpstreamConfig{
		"parser": {Timeout: 3 * time.Second},
		"extra":  {URL: "http://c"},
	}

	got := MergeUpstreams(base, file)

	assert.Equal(t, UpstreamConfig{URL: "http://a", Timeout: 3 * time.Second}, got["parser"])
	assert.Equal(t, UpstreamConfig{URL: "http://b"}, got["ml"])
	assert.Equal(t, "http://c", got["extra"].URL)
	assert.Equal(t, time.Second, base["parser"].Timeout, "base is not mutated")
}
