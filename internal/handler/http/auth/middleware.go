package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/requestid"
	"parcel-gateway/internal/handler/http/respond"
)

// Middleware resolves credentials, rejects failures with 401 and attaches
// the AuthContext to the request. Paths under any internalPrefixes are
// rejected with 401 unless the caller resolved to the internal tier.
func Middleware(resolver *Resolver, internalPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ac, err := resolver.Resolve(r)
			if err != nil {
				recordResolution("none", "unauthorized", time.Since(start).Seconds())
				slog.WarnContext(r.Context(), "credential rejected",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()))
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, err.Error())
				return
			}

			if isInternalPath(r.URL.Path, internalPrefixes) && ac.Tier != entity.TierInternal {
				recordResolution(ac.Tier.String(), "forbidden", time.Since(start).Seconds())
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "worker credentials required")
				return
			}

			recordResolution(ac.Tier.String(), "success", time.Since(start).Seconds())
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}

// isInternalPath matches whole path segments, so "/internal" covers
// "/internal/work" but not "/internals".
func isInternalPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// RequireInternal rejects every caller that is not on the internal tier.
// It is used to mount a whole listener as worker-only.
func RequireInternal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsInternal() {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "worker credentials required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
