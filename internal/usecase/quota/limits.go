// Package quota enforces per-user daily feature allowances.
//
// Each (user, feature, calendar day) pair has one counter. The first
// increment of the day gives the counter a 24 hour lifetime, so yesterday's
// counters disappear on their own. Limits are a strict daily cap: once the
// counter passes the tier's allowance every further call that day is rejected.
package quota

import "parcel-gateway/internal/domain/entity"

// Feature names a metered capability.
type Feature string

const (
	FeatureSearch     Feature = "search"
	FeatureDetails    Feature = "details"
	FeatureTopLists   Feature = "top_lists"
	FeatureAIAnalysis Feature = "ai_analysis"
)

// Special allowance values.
const (
	Unlimited = -1
	Forbidden = 0
)

// Features lists every metered feature, in the order usage is reported.
func Features() []Feature {
	return []Feature{FeatureSearch, FeatureDetails, FeatureTopLists, FeatureAIAnalysis}
}

type featureLimits map[Feature]int

var (
	anonymousLimits = featureLimits{FeatureSearch: 5, FeatureDetails: 10}
	freeLimits      = featureLimits{FeatureSearch: 20, FeatureDetails: 50}
	starterLimits   = featureLimits{FeatureSearch: 1000, FeatureDetails: 2000}
	unlimitedLimits = featureLimits{
		FeatureSearch:     Unlimited,
		FeatureDetails:    Unlimited,
		FeatureTopLists:   Unlimited,
		FeatureAIAnalysis: Unlimited,
	}
)

// DailyLimit returns the allowance for feature at tier. A feature missing
// from the tier's table is Forbidden, and so is any value outside the Tier enum.
func DailyLimit(tier entity.Tier, feature Feature) int {
	var table featureLimits
	switch tier {
	case entity.TierAnonymous:
		table = anonymousLimits
	case entity.TierFree:
		table = freeLimits
	case entity.TierStarter:
		table = starterLimits
	case entity.TierPremium, entity.TierEnterprise, entity.TierInternal:
		table = unlimitedLimits
	default:
		return Forbidden
	}

	limit, ok := table[feature]
	if !ok {
		return Forbidden
	}
	return limit
}
