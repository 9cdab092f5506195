// Package http holds the gateway's cross-cutting HTTP pieces: middleware
// shared by every listener, request metrics and the health endpoints.
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/upstream"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is one dependency's result.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// BreakerSnapshotter reports every upstream breaker.
type BreakerSnapshotter interface {
	Snapshot() []upstream.Stats
}

// HealthHandler checks Redis and Postgres and reports breaker states.
// A failed ping makes the gateway unhealthy (503). Open breakers and a busy
// connection pool only degrade it: the gateway itself still serves.
type HealthHandler struct {
	Redis    goredis.Cmdable
	DB       *sql.DB
	Breakers BreakerSnapshotter
	Version  string
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]CheckStatus{
		"redis":    h.checkRedis(ctx),
		"database": h.checkDatabase(ctx),
	}
	if h.Breakers != nil {
		checks["upstreams"] = h.checkBreakers()
	}

	status, code := statusHealthy, http.StatusOK
	for _, c := range checks {
		switch c.Status {
		case statusUnhealthy:
			status, code = statusUnhealthy, http.StatusServiceUnavailable
		case statusDegraded:
			if status == statusHealthy {
				status = statusDegraded
			}
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) checkRedis(ctx context.Context) CheckStatus {
	if h.Redis == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}
	start := time.Now()
	if err := h.Redis.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "health: redis ping failed", slog.String("error", err.Error()))
		return CheckStatus{Status: statusUnhealthy, Message: respond.SanitizeError(err)}
	}
	return CheckStatus{
		Status:  statusHealthy,
		Details: map[string]any{"latency_ms": time.Since(start).Milliseconds()},
	}
}

// checkDatabase pings Postgres and reports pool statistics. A pool at 80%
// or more of its open-connection cap is degraded.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if h.DB == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}
	if err := h.DB.PingContext(ctx); err != nil {
		slog.WarnContext(ctx, "health: database ping failed", slog.String("error", respond.SanitizeError(err)))
		return CheckStatus{Status: statusUnhealthy, Message: respond.SanitizeError(err)}
	}

	stats := h.DB.Stats()
	details := map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{Status: statusHealthy, Details: details}
	}

	utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilization
	if utilization >= 80.0 {
		return CheckStatus{
			Status:  statusDegraded,
			Message: "connection pool utilization above 80%",
			Details: details,
		}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

func (h *HealthHandler) checkBreakers() CheckStatus {
	snapshot := h.Breakers.Snapshot()
	details := make(map[string]any, len(snapshot))
	status := statusHealthy
	for _, s := range snapshot {
		details[s.Name] = s
		if s.State != upstream.StateClosed.String() {
			status = statusDegraded
		}
	}
	return CheckStatus{Status: status, Details: details}
}

// LiveHandler answers liveness probes without touching dependencies.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
