// Package redis implements the gateway's Redis-backed repositories: usage
// counters, the worker task queue, worker liveness and the property cache.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"parcel-gateway/internal/resilience/retry"
)

// Open parses url, connects and pings with retry. The returned client is
// safe for concurrent use by every repository in this package.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	err = retry.WithBackoff(ctx, retry.RedisConfig(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	slog.Info("redis connection established",
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB))
	return client, nil
}
