package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes in a single server-side step.
//
// KEYS[1] bucket hash (fields: tokens, updated_at)
// ARGV[1] now, seconds as a float
// ARGV[2] refill rate, tokens per second
// ARGV[3] burst capacity
// ARGV[4] requested tokens
// ARGV[5] ttl seconds applied on every admit
//
// Returns {allowed (0|1), floor(tokens)}. A denied check writes nothing.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'updated_at')
local tokens = tonumber(state[1]) or burst
local updated = tonumber(state[2]) or now

local elapsed = math.max(0, now - updated)
tokens = math.min(burst, tokens + elapsed * rate)

if tokens >= requested then
	tokens = tokens - requested
	redis.call('HSET', key, 'tokens', tostring(tokens), 'updated_at', tostring(now))
	redis.call('EXPIRE', key, ttl)
	return {1, math.floor(tokens)}
end
return {0, math.floor(tokens)}
`)

// RedisBucketStore keeps buckets in Redis hashes shared by all gateway replicas.
type RedisBucketStore struct {
	client redis.Scripter
	ttl    time.Duration
}

// NewRedisBucketStore creates a store on client. A ttl below one second is
// raised to one second because EXPIRE has second granularity.
func NewRedisBucketStore(client redis.Scripter, ttl time.Duration) *RedisBucketStore {
	if ttl < time.Second {
		ttl = time.Second
	}
	return &RedisBucketStore{client: client, ttl: ttl}
}

// Take implements BucketStore. The script is sent with EVALSHA and falls back
// to EVAL the first time a Redis node has not cached it.
func (s *RedisBucketStore) Take(ctx context.Context, key string, limit Limit, now time.Time, requested int) (Decision, error) {
	nowSeconds := float64(now.UnixMicro()) / 1e6

	res, err := tokenBucketScript.Run(ctx, s.client, []string{key},
		nowSeconds, limit.Rate, limit.Burst, requested, int64(s.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("token bucket script for %s: %w", key, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("token bucket script for %s: unexpected reply length %d", key, len(res))
	}

	return Decision{
		Key:       key,
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
		Limit:     limit,
	}, nil
}
