package entity

import (
	"fmt"
	"strings"
)

// Tier is the privilege class of a caller. The set is closed: every value a
// Tier can hold is listed below, and tier-indexed tables switch over all of them.
type Tier int

const (
	TierAnonymous Tier = iota
	TierFree
	TierStarter
	TierPremium
	TierEnterprise
	// TierInternal is reserved for worker and service credentials.
	TierInternal
)

var tierNames = [...]string{
	TierAnonymous:  "anonymous",
	TierFree:       "free",
	TierStarter:    "starter",
	TierPremium:    "premium",
	TierEnterprise: "enterprise",
	TierInternal:   "internal",
}

// AllTiers returns every tier in privilege order.
func AllTiers() []Tier {
	return []Tier{TierAnonymous, TierFree, TierStarter, TierPremium, TierEnterprise, TierInternal}
}

// Valid reports whether t is one of the declared tiers.
func (t Tier) Valid() bool {
	return t >= TierAnonymous && t <= TierInternal
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier maps a wire name to a Tier. Matching is case-insensitive.
func ParseTier(s string) (Tier, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == name {
			return Tier(i), true
		}
	}
	return TierAnonymous, false
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal tier: unknown value %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, ok := ParseTier(string(b))
	if !ok {
		return &ValidationError{Field: "tier", Message: fmt.Sprintf("unknown tier %q", string(b))}
	}
	*t = parsed
	return nil
}
