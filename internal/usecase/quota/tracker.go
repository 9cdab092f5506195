package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/internal/repository"
)

// counterTTL is the lifetime of a daily counter from its first increment.
const counterTTL = 24 * time.Hour

// Tracker counts feature use against DailyLimit.
type Tracker struct {
	store    repository.UsageCounterRepository
	now      func() time.Time
	location *time.Location
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the time zone that decides where a calendar day starts.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.location = loc }
}

// NewTracker creates a Tracker on store.
func NewTracker(store repository.UsageCounterRepository, opts ...Option) *Tracker {
	t := &Tracker{store: store, now: time.Now, location: time.UTC}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the counter key for userID and feature on the current day:
// "usage:{user}:{feature}:{YYYY-MM-DD}".
func (t *Tracker) Key(userID string, feature Feature) string {
	day := t.now().In(t.location).Format(time.DateOnly)
	return fmt.Sprintf("usage:%s:%s:%s", userID, feature, day)
}

// CheckAndIncrement counts one use of feature and reports whether it is
// within the day's allowance. Unlimited tiers never touch the store. An
// over-limit attempt still counts; the counter is not rolled back.
func (t *Tracker) CheckAndIncrement(ctx context.Context, userID string, tier entity.Tier, feature Feature) (bool, error) {
	allowed, err := t.checkAndIncrement(ctx, userID, tier, feature)
	metrics.RecordQuotaDecision(tier.String(), string(feature), allowed, err)
	return allowed, err
}

func (t *Tracker) checkAndIncrement(ctx context.Context, userID string, tier entity.Tier, feature Feature) (bool, error) {
	limit := DailyLimit(tier, feature)
	switch limit {
	case Unlimited:
		return true, nil
	case Forbidden:
		return false, nil
	}

	key := t.Key(userID, feature)
	count, err := t.store.Increment(ctx, key, counterTTL)
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", key, err)
	}

	if count > int64(limit) {
		slog.WarnContext(ctx, "tier limit exceeded",
			slog.String("user_id", userID),
			slog.String("tier", tier.String()),
			slog.String("feature", string(feature)),
			slog.Int64("count", count),
			slog.Int("limit", limit))
		return false, nil
	}
	return true, nil
}

// GetUsage returns today's count for every metered feature. Features with no
// counter yet report 0.
func (t *Tracker) GetUsage(ctx context.Context, userID string) (map[Feature]int64, error) {
	features := Features()
	keys := make([]string, len(features))
	for i, f := range features {
		keys[i] = t.Key(userID, f)
	}

	counts, err := t.store.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("read usage for %s: %w", userID, err)
	}
	if len(counts) != len(keys) {
		return nil, fmt.Errorf("read usage for %s: expected %d counters, got %d", userID, len(keys), len(counts))
	}

	usage := make(map[Feature]int64, len(features))
	for i, f := range features {
		usage[f] = counts[i]
	}
	return usage, nil
}
