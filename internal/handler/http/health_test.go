package http

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-gateway/internal/upstream"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func serveHealth(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return rr.Code, resp
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	_, rdb := newRedis(t)
	db, mock := newDB(t)
	mock.ExpectPing()

	code, resp := serveHealth(t, &HealthHandler{
		Redis:    rdb,
		DB:       db,
		Breakers: upstream.NewRegistry(upstream.DefaultSettings()),
		Version:  "v1.2.3",
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["redis"].Status)
	assert.Equal(t, "healthy", resp.Checks["database"].Status)
	assert.Equal(t, "healthy", resp.Checks["upstreams"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthHandler_DependencyDown(t *testing.T) {
	tests := []struct {
		name      string
		redisDown bool
		dbErr     error
		wantCheck string
	}{
		{name: "redis down", redisDown: true, wantCheck: "redis"},
		{name: "database down", dbErr: sql.ErrConnDone, wantCheck: "database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, rdb := newRedis(t)
			if tt.redisDown {
				mr.Close()
			}
			db, mock := newDB(t)
			mock.ExpectPing().WillReturnError(tt.dbErr)

			code, resp := serveHealth(t, &HealthHandler{Redis: rdb, DB: db})

			assert.Equal(t, http.StatusServiceUnavailable, code)
			assert.Equal(t, "unhealthy", resp.Status)
			assert.Equal(t, "unhealthy", resp.Checks[tt.wantCheck].Status)
			assert.NotEmpty(t, resp.Checks[tt.wantCheck].Message)
		})
	}
}

func TestHealthHandler_NotConfigured(t *testing.T) {
	code, resp := serveHealth(t, &HealthHandler{})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not configured", resp.Checks["redis"].Message)
	assert.Equal(t, "not configured", resp.Checks["database"].Message)
	assert.NotContains(t, resp.Checks, "upstreams")
}

func TestHealthHandler_OpenBreakerDegrades(t *testing.T) {
	_, rdb := newRedis(t)
	db, mock := newDB(t)
	mock.ExpectPing()

	reg := upstream.NewRegistry(upstream.Settings{FailureThreshold: 1, RecoveryTimeout: time.Minute},
		upstream.WithRegistryClock(fixedClock{t: time.Unix(1_700_000_000, 0)}))
	reg.Get("parser").RecordFailure()
	reg.Get("ml")

	code, resp := serveHealth(t, &HealthHandler{Redis: rdb, DB: db, Breakers: reg})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	up := resp.Checks["upstreams"]
	assert.Equal(t, "degraded", up.Status)
	parser, ok := up.Details["parser"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "open", parser["state"])
}

func TestHealthHandler_PoolUtilization(t *testing.T) {
	_, rdb := newRedis(t)
	db, mock := newDB(t)
	db.SetMaxOpenConns(10)
	mock.ExpectPing()

	code, resp := serveHealth(t, &HealthHandler{Redis: rdb, DB: db})

	assert.Equal(t, http.StatusOK, code)
	details := resp.Checks["database"].Details
	assert.Equal(t, float64(10), details["max_open_connections"])
	assert.Contains(t, details, "utilization_percent")
}

func TestLiveHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	LiveHandler{}.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rr.Body.String())
}
