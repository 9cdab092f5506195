package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"parcel-gateway/internal/repository"
)

type PropertyCache struct{ rdb goredis.Cmdable }

func NewPropertyCache(rdb goredis.Cmdable) repository.PropertyCache {
	return &PropertyCache{rdb: rdb}
}

func (c *PropertyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return body, true, nil
}

func (c *PropertyCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, body, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
