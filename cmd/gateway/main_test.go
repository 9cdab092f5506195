package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parcel-gateway/internal/config"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/observability/slo"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func testConfig() *config.GatewayConfig {
	return &config.GatewayConfig{MaxBodyBytes: 1 << 20, RequestTimeout: time.Second}
}

func TestListenerHandler_InternalRequiresWorkerToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := auth.NewResolver([]string{"secret"}, nil)

	routes := http.NewServeMux()
	routes.Handle("GET /internal/work", okHandler("work"))
	h := listenerHandler(logger, testConfig(), okHandler("healthy"),
		protect(routes, auth.Middleware(resolver), auth.RequireInternal, nil))

	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
		wantBody string
	}{
		{"health is open", "/health", "", http.StatusOK, "healthy"},
		{"anonymous rejected", "/internal/work", "", http.StatusUnauthorized, ""},
		{"bad token rejected", "/internal/work", "wrong", http.StatusUnauthorized, ""},
		{"worker admitted", "/internal/work", "secret", http.StatusOK, "work"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				r.Header.Set(auth.WorkerTokenHeader, tt.token)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestListenerHandler_SLOObservesRequests(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := slo.NewTracker(10)
	h := listenerHandler(logger, testConfig(), okHandler("ok"), okHandler("route"), tracker.Middleware)

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/properties", nil))
	}

	assert.Equal(t, 3, tracker.Flush().Requests)
}

func TestMetricsMux(t *testing.T) {
	h := metricsMux(okHandler("healthy"), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
