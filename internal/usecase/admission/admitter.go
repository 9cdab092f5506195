package admission

import (
	"context"
	"fmt"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/pkg/ratelimit"
)

// Admitter applies the tier table to a ratelimit.Limiter.
type Admitter struct {
	limiter *ratelimit.Limiter
	limits  func(entity.Tier) ratelimit.Limit
}

// NewAdmitter creates an Admitter using the static tier table.
func NewAdmitter(limiter *ratelimit.Limiter) *Admitter {
	return &Admitter{limiter: limiter, limits: RateLimitFor}
}

// Admit takes one token for the caller. The bucket key is
// "ratelimit:{tier}:{identifier}" where identifier is the user, then the
// worker, then remoteAddr.
func (a *Admitter) Admit(ctx context.Context, ac entity.AuthContext, remoteAddr string) (ratelimit.Decision, error) {
	tier := ac.Tier
	if !tier.Valid() {
		tier = entity.TierAnonymous
	}

	d, err := a.limiter.Allow(ctx, tier.String(), ac.Identifier(remoteAddr), a.limits(tier))
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("admit %s caller: %w", tier, err)
	}
	return d, nil
}
