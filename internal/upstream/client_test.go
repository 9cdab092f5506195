package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"parcel-gateway/internal/observability/metrics"
)

func newTestClient(t *testing.T, name string, h http.HandlerFunc, settings Settings, opts ...ClientOption) (*Client, *Breaker) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	b := NewBreaker(name, settings, newManualClock())
	c, err := NewClient(name, srv.URL, b, opts...)
	require.NoError(t, err)
	return c, b
}

func TestClient_ForwardsRequest(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	c, _ := newTestClient(t, "fwd", func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, DefaultSettings())

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/v1/predictions/batch",
		Query:  url.Values{"limit": {"5"}},
		Body:   []byte(`{"ids":[1]}`),
		Header: http.Header{"X-User-Id": {"u1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/predictions/batch", got.URL.Path)
	assert.Equal(t, "5", got.URL.Query().Get("limit"))
	assert.Equal(t, "u1", got.Header.Get("X-User-Id"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"ids":[1]}`, string(gotBody))
}

func TestClient_StatusAccounting(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantErr     bool
		wantFailure bool
	}{
		{"ok", http.StatusOK, false, false},
		{"not found is success", http.StatusNotFound, false, false},
		{"bad request is success", http.StatusBadRequest, false, false},
		{"500 fails", http.StatusInternalServerError, true, true},
		{"503 fails", http.StatusServiceUnavailable, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestClient(t, "status-"+tt.name, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, DefaultSettings())

			resp, err := c.Do(context.Background(), Request{Path: "/x"})
			if tt.wantErr {
				var ue *UnavailableError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, tt.status, ue.StatusCode)
				assert.True(t, IsUnavailable(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.status, resp.StatusCode)
			}
			want := 0
			if tt.wantFailure {
				want = 1
			}
			assert.Equal(t, want, b.Stats().ConsecutiveFailures)
		})
	}
}

func TestClient_FailsFastWhenOpen(t *testing.T) {
	var hits atomic.Int32
	c, b := newTestClient(t, "failfast", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, Settings{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/"})
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, b.State())

	_, err := c.Do(context.Background(), Request{Path: "/"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(2), hits.Load(), "no network attempt while open")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamRequestsTotal.WithLabelValues("failfast", "circuit_open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("failfast")))
}

func TestClient_TimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	c, b := newTestClient(t, "slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, DefaultSettings(), WithTimeout(time.Second))
	defer close(release)

	_, err := c.Do(context.Background(), Request{Path: "/", Timeout: 20 * time.Millisecond})
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, b.Stats().ConsecutiveFailures)
}

func TestClient_TransportErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	b := NewBreaker("gone", DefaultSettings(), newManualClock())
	c, err := NewClient("gone", base, b)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Path: "/"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 1, b.Stats().ConsecutiveFailures)
}

func TestClient_CallerCancelDoesNotCount(t *testing.T) {
	started := make(chan struct{})
	c, b := newTestClient(t, "cancel", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}, DefaultSettings())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Do(ctx, Request{Path: "/"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsUnavailable(err))
	assert.Equal(t, 0, b.Stats().ConsecutiveFailures)
}

func TestClient_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c, _ := newTestClient(t, "traced", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, DefaultSettings(), WithTracerProvider(tp))

	_, err := c.Do(context.Background(), Request{Path: "/parcels"})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "upstream traced", spans[0].Name)
	assert.Equal(t, "Error", spans[0].Status.Code.String())
}

func TestNewClient_Validation(t *testing.T) {
	b := NewBreaker("v", DefaultSettings(), nil)
	_, err := NewClient("v", "ftp://example.com", b)
	assert.Error(t, err)
	_, err = NewClient("v", "http://example.com", nil)
	assert.Error(t, err)
	_, err = NewClient("v", "://bad", b)
	assert.Error(t, err)
	assert.False(t, IsUnavailable(errors.New("other")))
}
