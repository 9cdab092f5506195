// Package admission decides whether a request may proceed based on the
// caller's tier-specific token bucket.
package admission

import (
	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/pkg/ratelimit"
)

// Bucket shapes per tier: refill rate in tokens per second and burst capacity.
var (
	anonymousLimit = ratelimit.Limit{Rate: 0.1, Burst: 5}
	freeLimit      = ratelimit.Limit{Rate: 0.5, Burst: 10}
	starterLimit   = ratelimit.Limit{Rate: 1.0, Burst: 20}
	premiumLimit   = ratelimit.Limit{Rate: 2.0, Burst: 50}
	internalLimit  = ratelimit.Limit{Rate: 10.0, Burst: 100}
)

// RateLimitFor returns the bucket shape for tier. Enterprise shares the
// premium bucket. A value outside the Tier enum gets the anonymous bucket;
// this is the only fallback.
func RateLimitFor(tier entity.Tier) ratelimit.Limit {
	switch tier {
	case entity.TierAnonymous:
		return anonymousLimit
	case entity.TierFree:
		return freeLimit
	case entity.TierStarter:
		return starterLimit
	case entity.TierPremium, entity.TierEnterprise:
		return premiumLimit
	case entity.TierInternal:
		return internalLimit
	default:
		return anonymousLimit
	}
}
