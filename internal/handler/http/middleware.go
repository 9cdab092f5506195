package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"parcel-gateway/internal/handler/http/requestid"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/handler/http/responsewriter"
	"parcel-gateway/internal/observability/logging"
)

// Input limits enforced by LimitRequest.
const (
	MaxAuthorizationHeader = 8 << 10
	MaxPathLength          = 2 << 10
	DefaultMaxBodyBytes    = 10 << 20
)

// Logging stores a request-scoped logger in the context and writes one
// access log line per request. It must run after requestid and tracing.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logging.WithRequestID(r.Context(), logger)

			wrapped := responsewriter.Wrap(w)
			next.ServeHTTP(wrapped, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))

			status := wrapped.StatusCode()
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			}
			duration := time.Since(start)
			reqLogger.LogAttrs(r.Context(), level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.Int("status", status),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", duration),
				slog.String("duration_ms", fmt.Sprintf("%.2f", duration.Seconds()*1000)),
			)
		})
	}
}

// Recover turns a handler panic into a 500 INTERNAL_ERROR envelope, unless
// the handler already started the response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := responsewriter.Wrap(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))

				if !wrapped.HeaderWritten() {
					respond.SafeError(wrapped, http.StatusInternalServerError, respond.CodeInternal,
						fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(wrapped, r)
		})
	}
}

// LimitRequest rejects oversized Authorization headers and paths before any
// other work is done, and caps the body at maxBody bytes. A handler that
// reads past the cap gets *http.MaxBytesError.
func LimitRequest(maxBody int64) func(http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header.Get("Authorization")) > MaxAuthorizationHeader {
				respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "authorization header too large")
				return
			}
			if len(r.URL.Path) > MaxPathLength {
				respond.Error(w, http.StatusRequestURITooLong, respond.CodeURITooLong, "request path too long")
				return
			}
			if r.ContentLength > maxBody {
				respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			next.ServeHTTP(w, r)
		})
	}
}

// Deadline bounds the request context. Handlers see the deadline through
// ctx and report it as 504; nothing here writes on their behalf.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Chain applies middleware so the first one listed is the outermost.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
