package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/quota"
)

// DefaultUpgradeURL is returned with TIER_LIMIT_EXCEEDED responses.
const DefaultUpgradeURL = "/pricing"

// QuotaChecker counts one use of a metered feature.
type QuotaChecker interface {
	CheckAndIncrement(ctx context.Context, userID string, tier entity.Tier, feature quota.Feature) (bool, error)
}

// Quota builds per-route feature gates.
type Quota struct {
	checker    QuotaChecker
	extractor  IPExtractor
	upgradeURL string
}

func NewQuota(checker QuotaChecker, ex IPExtractor, upgradeURL string) *Quota {
	if upgradeURL == "" {
		upgradeURL = DefaultUpgradeURL
	}
	return &Quota{checker: checker, extractor: ex, upgradeURL: upgradeURL}
}

// Subject returns the identity usage is counted against: the user id, or the
// client address for anonymous callers.
func (q *Quota) Subject(r *http.Request) string {
	if ac := auth.FromContext(r.Context()); ac.UserID != "" {
		return ac.UserID
	}
	return clientAddr(q.extractor, r)
}

// RequireFeature rejects the request with 403 once the caller has used up
// today's allowance of feature. Anonymous callers are counted by client
// address. Unlike rate limiting, a store failure rejects with 503.
func (q *Quota) RequireFeature(feature quota.Feature) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.FromContext(r.Context())
			id := q.Subject(r)

			ok, err := q.checker.CheckAndIncrement(r.Context(), id, ac.Tier, feature)
			if err != nil {
				slog.ErrorContext(r.Context(), "quota check failed",
					slog.String("feature", string(feature)),
					slog.String("error", err.Error()))
				respond.Error(w, http.StatusServiceUnavailable, respond.CodeQuotaUnavailable,
					"usage quota temporarily unavailable")
				return
			}
			if !ok {
				respond.ErrorWithDetails(w, http.StatusForbidden, respond.CodeTierLimitExceeded,
					"daily "+string(feature)+" limit reached for the "+ac.Tier.String()+" tier",
					map[string]any{
						"feature":     string(feature),
						"tier":        ac.Tier.String(),
						"upgrade_url": q.upgradeURL,
					})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
