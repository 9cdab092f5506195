package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/repository"
)

// heartbeatTTL is how long a worker counts as live after its last heartbeat.
const heartbeatTTL = 5 * time.Minute

// WorkerStatusKey names the heartbeat hash of workerID.
func WorkerStatusKey(workerID string) string {
	return "worker:" + workerID + ":status"
}

type WorkerRegistry struct{ rdb goredis.Cmdable }

func NewWorkerRegistry(rdb goredis.Cmdable) repository.WorkerRegistry {
	return &WorkerRegistry{rdb: rdb}
}

func (r *WorkerRegistry) RecordHeartbeat(ctx context.Context, workerID string, status entity.WorkerStatus, seenAt time.Time) error {
	key := WorkerStatusKey(workerID)
	fields := map[string]any{
		"last_seen":             seenAt.UTC().Format(time.RFC3339),
		"active_tasks":          status.ActiveTasks,
		"platforms":             strings.Join(status.Platforms, ","),
		"cpu":                   strconv.FormatFloat(status.CPUPercent, 'f', -1, 64),
		"memory":                strconv.FormatFloat(status.MemoryPercent, 'f', -1, 64),
		"completed_last_minute": status.CompletedLastMinute,
		"failed_last_minute":    status.FailedLastMinute,
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, heartbeatTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("RecordHeartbeat: %w", err)
	}
	return nil
}

// CountLive counts heartbeat hashes that have not expired.
func (r *WorkerRegistry) CountLive(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, "worker:*:status", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("CountLive: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
