package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"parcel-gateway/internal/repository"
)

// UsageRepo stores daily usage counters as plain Redis integers.
type UsageRepo struct{ rdb goredis.Cmdable }

func NewUsageRepo(rdb goredis.Cmdable) repository.UsageCounterRepository {
	return &UsageRepo{rdb: rdb}
}

// Increment runs INCR and EXPIRE NX in one MULTI/EXEC, so a counter can
// never be left behind without a TTL.
func (repo *UsageRepo) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *goredis.IntCmd
	_, err := repo.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Increment: %w", err)
	}
	return incr.Val(), nil
}

func (repo *UsageRepo) Get(ctx context.Context, keys ...string) ([]int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := repo.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("Get: %w", err)
	}

	out := make([]int64, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Get: counter %s is not an integer: %w", keys[i], err)
		}
		out[i] = n
	}
	return out, nil
}
