package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// upstreamsFile is the layout of GATEWAY_UPSTREAMS_FILE:
//
//	upstreams:
//	  parser:
//	    url: http://parser:8000
//	    timeout: 20s
//	    breaker:
//	      failure_threshold: 3
//	      recovery_timeout: 15s
//	      single_probe: true
type upstreamsFile struct {
	Upstreams map[string]UpstreamConfig `yaml:"upstreams"`
}

// LoadUpstreamsFile reads upstream definitions from a YAML file.
func LoadUpstreamsFile(path string) (map[string]UpstreamConfig, error) {
	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upstreams file: %w", err)
	}
	return ParseUpstreams(data)
}

// ParseUpstreams decodes and checks upstream definitions. Unknown keys are
// rejected so a typo does not silently fall back to a default.
func ParseUpstreams(data []byte) (map[string]UpstreamConfig, error) {
	var f upstreamsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse upstreams file: %w", err)
	}

	for name, u := range f.Upstreams {
		if u.URL != "" {
			parsed, err := url.Parse(u.URL)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return nil, fmt.Errorf("upstream %q: url %q must be an absolute http(s) url", name, u.URL)
			}
		}
		if u.Timeout < 0 || u.Breaker.RecoveryTimeout < 0 || u.Breaker.FailureThreshold < 0 {
			return nil, fmt.Errorf("upstream %q: negative timeout or threshold", name)
		}
	}
	return f.Upstreams, nil
}

// MergeUpstreams overlays file entries on base. Empty fields in an entry
// keep the base value.
func MergeUpstreams(base, file map[string]UpstreamConfig) map[string]UpstreamConfig {
	out := make(map[string]UpstreamConfig, len(base)+len(file))
	for name, u := range base {
		out[name] = u
	}
	for name, u := range file {
		merged := out[name]
		if u.URL != "" {
			merged.URL = u.URL
		}
		if u.Timeout > 0 {
			merged.Timeout = u.Timeout
		}
		if u.Breaker != (BreakerConfig{}) {
			merged.Breaker = u.Breaker
		}
		out[name] = merged
	}
	return out
}
