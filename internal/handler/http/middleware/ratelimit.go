package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/pkg/ratelimit"
)

// Admitter takes one token for a caller.
type Admitter interface {
	Admit(ctx context.Context, ac entity.AuthContext, remoteAddr string) (ratelimit.Decision, error)
}

// RateLimit charges every request against the caller's token bucket and
// reports the bucket in X-RateLimit-Limit and X-RateLimit-Remaining. It must
// run after auth.Middleware.
//
// A store failure lets the request through: an unreachable Redis should
// degrade admission control, not the API.
func RateLimit(admitter Admitter, ex IPExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.FromContext(r.Context())

			d, err := admitter.Admit(r.Context(), ac, clientAddr(ex, r))
			if err != nil {
				metrics.RateLimitStoreFailuresTotal.Inc()
				slog.WarnContext(r.Context(), "rate limit store unavailable, admitting request",
					slog.String("tier", ac.Tier.String()),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				if secs := d.RetryAfterSeconds(); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				respond.Error(w, http.StatusTooManyRequests, respond.CodeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
