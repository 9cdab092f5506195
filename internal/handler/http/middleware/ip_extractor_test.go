package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteAddrExtractor(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
		wantErr    bool
	}{
		{"ipv4 with port", "192.168.1.1:54321", "192.168.1.1", false},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1", false},
		{"bare ipv4", "127.0.0.1", "127.0.0.1", false},
		{"bare ipv6", "::1", "::1", false},
		{"garbage", "not-an-address", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr

			got, err := RemoteAddrExtractor{}.ExtractIP(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.1", " 172.16.5.0/12 ", "", "2001:db8::/32"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.1/32"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, got)

	_, err = ParseTrustedProxies([]string{"10.0.0.1", "proxy.internal"})
	assert.ErrorContains(t, err, "proxy.internal")
}

func TestLoadTrustedProxyConfig(t *testing.T) {
	tests := []struct {
		name    string
		trust   string
		proxies string
		want    TrustedProxyConfig
		wantErr bool
	}{
		{name: "disabled by default", want: TrustedProxyConfig{}},
		{name: "disabled ignores list", trust: "false", proxies: "10.0.0.1", want: TrustedProxyConfig{}},
		{
			name:    "enabled",
			trust:   "true",
			proxies: "10.0.0.0/8",
			want: TrustedProxyConfig{
				Enabled: true,
				Proxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
			},
		},
		{name: "enabled without proxies", trust: "true", wantErr: true},
		{name: "enabled with bad proxy", trust: "true", proxies: "10.0.0.0/99", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GATEWAY_TRUST_PROXY", tt.trust)
			t.Setenv("GATEWAY_TRUSTED_PROXIES", tt.proxies)

			got, err := LoadTrustedProxyConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrustedProxyExtractor(t *testing.T) {
	cfg := TrustedProxyConfig{
		Enabled: true,
		Proxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"trusted proxy uses first forwarded hop", "10.1.2.3:443", "203.0.113.9, 10.1.2.3", "", "203.0.113.9"},
		{"trusted proxy falls back to real ip", "10.1.2.3:443", "", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy with junk headers", "10.1.2.3:443", "junk", "also-junk", "10.1.2.3"},
		{"untrusted peer cannot spoof", "203.0.113.50:1234", "1.2.3.4", "5.6.7.8", "203.0.113.50"},
		{"no headers", "10.1.2.3:443", "", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			got, err := NewTrustedProxyExtractor(cfg).ExtractIP(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewIPExtractor(t *testing.T) {
	assert.IsType(t, RemoteAddrExtractor{}, NewIPExtractor(TrustedProxyConfig{}))
	assert.IsType(t, &TrustedProxyExtractor{}, NewIPExtractor(TrustedProxyConfig{Enabled: true}))
}

func TestClientAddr_FallsBackToRawRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "@unix-socket"
	assert.Equal(t, "@unix-socket", clientAddr(RemoteAddrExtractor{}, req))
}
