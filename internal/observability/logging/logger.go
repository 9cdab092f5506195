package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/requestid"
)

// ParseLevel maps LOG_LEVEL values (debug, info, warn, error) to a level.
// Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a JSON logger on stdout at the LOG_LEVEL level.
func NewLogger() *slog.Logger {
	return newLogger(os.Stdout, os.Getenv("LOG_FORMAT"), ParseLevel(os.Getenv("LOG_LEVEL")))
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Setup builds the process logger, tags it with service and installs it as
// the slog default.
func Setup(service string) *slog.Logger {
	logger := NewLogger().With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

// WithRequestID returns logger tagged with the request and trace IDs found
// in ctx. Missing IDs are left out.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	var attrs []any
	if reqID := requestid.FromContext(ctx); reqID != "" {
		attrs = append(attrs, slog.String("request_id", reqID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// WithAuth tags logger with the caller identity. Worker and user IDs are
// only added when present.
func WithAuth(logger *slog.Logger, ac entity.AuthContext) *slog.Logger {
	attrs := []any{slog.String("tier", ac.Tier.String())}
	if ac.UserID != "" {
		attrs = append(attrs, slog.String("user_id", ac.UserID))
	}
	if ac.WorkerID != "" {
		attrs = append(attrs, slog.String("worker_id", ac.WorkerID))
	}
	return logger.With(attrs...)
}

// FromContext returns the request logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

type loggerContextKey struct{}
