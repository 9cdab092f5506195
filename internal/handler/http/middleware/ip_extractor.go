// Package middleware holds the admission middleware of the public listener:
// client address extraction, token bucket rate limiting and daily quotas.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"parcel-gateway/pkg/config"
)

// IPExtractor returns the client address used as the rate limit and quota
// identifier of anonymous callers.
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the TCP peer address. It cannot be spoofed and is
// the default when the gateway is not behind a proxy.
type RemoteAddrExtractor struct{}

func (RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return hostOnly(r.RemoteAddr)
}

// TrustedProxyConfig lists the proxies whose forwarding headers are believed.
type TrustedProxyConfig struct {
	Enabled bool
	Proxies []netip.Prefix
}

// IsTrusted reports whether remoteAddr is one of the configured proxies.
func (c TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	host, err := hostOnly(remoteAddr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.Proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ParseTrustedProxies accepts single addresses ("10.0.0.1") and CIDR
// ranges ("172.16.0.0/12") in any mix.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: want an IP address or CIDR range", raw)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// LoadTrustedProxyConfig reads GATEWAY_TRUST_PROXY and
// GATEWAY_TRUSTED_PROXIES. Enabling trust without any proxy is an error so
// a typo cannot silently fall back to trusting nobody.
func LoadTrustedProxyConfig() (TrustedProxyConfig, error) {
	cfg := TrustedProxyConfig{Enabled: config.GetEnvBool("GATEWAY_TRUST_PROXY", false)}
	if !cfg.Enabled {
		return cfg, nil
	}

	proxies, err := ParseTrustedProxies(config.GetEnvStringList("GATEWAY_TRUSTED_PROXIES", nil))
	if err != nil {
		return TrustedProxyConfig{}, fmt.Errorf("GATEWAY_TRUSTED_PROXIES: %w", err)
	}
	if len(proxies) == 0 {
		return TrustedProxyConfig{}, errors.New("GATEWAY_TRUST_PROXY is enabled but GATEWAY_TRUSTED_PROXIES is empty")
	}
	cfg.Proxies = proxies
	return cfg, nil
}

// TrustedProxyExtractor reads X-Forwarded-For, then X-Real-IP, but only
// when the peer is a trusted proxy. Everyone else gets RemoteAddr.
type TrustedProxyExtractor struct {
	config TrustedProxyConfig
}

func NewTrustedProxyExtractor(cfg TrustedProxyConfig) *TrustedProxyExtractor {
	return &TrustedProxyExtractor{config: cfg}
}

// NewIPExtractor picks the extractor matching cfg.
func NewIPExtractor(cfg TrustedProxyConfig) IPExtractor {
	if !cfg.Enabled {
		return RemoteAddrExtractor{}
	}
	return NewTrustedProxyExtractor(cfg)
}

func (e *TrustedProxyExtractor) ExtractIP(r *http.Request) (string, error) {
	if !e.config.Enabled {
		return hostOnly(r.RemoteAddr)
	}

	xff := r.Header.Get("X-Forwarded-For")
	xri := r.Header.Get("X-Real-IP")
	if !e.config.IsTrusted(r.RemoteAddr) {
		if xff != "" || xri != "" {
			slog.WarnContext(r.Context(), "forwarding headers from untrusted peer ignored",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_forwarded_for", xff),
				slog.String("x_real_ip", xri))
		}
		return hostOnly(r.RemoteAddr)
	}

	if first, _, _ := strings.Cut(xff, ","); first != "" {
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String(), nil
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
		return ip.String(), nil
	}
	return hostOnly(r.RemoteAddr)
}

// hostOnly strips the port from "host:port"; a bare IP is returned as is.
func hostOnly(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err == nil {
		return host, nil
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String(), nil
	}
	return "", fmt.Errorf("invalid address format: %s", addr)
}

// clientAddr never fails: an unparseable RemoteAddr is used verbatim so
// the caller still lands in some bucket.
func clientAddr(ex IPExtractor, r *http.Request) string {
	ip, err := ex.ExtractIP(r)
	if err != nil {
		slog.WarnContext(r.Context(), "client address extraction failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return r.RemoteAddr
	}
	return ip
}
