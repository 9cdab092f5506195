package public

import (
	"context"
	"net/http"
	"time"

	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/quota"
)

// UsageReader reports today's counters for a subject.
type UsageReader interface {
	GetUsage(ctx context.Context, userID string) (map[quota.Feature]int64, error)
}

// SubjectFunc names the identity a request's usage is counted against.
type SubjectFunc func(r *http.Request) string

// UsageHandler serves GET /v1/usage.
type UsageHandler struct {
	Usage   UsageReader
	Subject SubjectFunc
	Now     func() time.Time
}

func (h UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	subject := h.Subject(r)

	counts, err := h.Usage.GetUsage(r.Context(), subject)
	if err != nil {
		respond.SafeError(w, http.StatusServiceUnavailable, respond.CodeQuotaUnavailable, err)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	out := UsageDTO{
		UserID: ac.UpstreamUserID(),
		Tier:   ac.Tier.String(),
		Date:   now().UTC().Format(time.DateOnly),
		Usage:  make(map[string]FeatureUsage, len(counts)),
	}
	for _, f := range quota.Features() {
		out.Usage[string(f)] = FeatureUsage{Used: counts[f], Limit: quota.DailyLimit(ac.Tier, f)}
	}
	respond.JSON(w, http.StatusOK, out)
}
