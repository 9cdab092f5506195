package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/internal/repository"
)

// LaneKey names the list holding tasks for platform at priority.
func LaneKey(platform string, priority int) string {
	return fmt.Sprintf("queue:%s:p%d", platform, priority)
}

// ProcessingKey names the list of tasks checked out by workerID.
func ProcessingKey(workerID string) string {
	return "processing:" + workerID
}

// TaskQueue is a reliable priority queue built from Redis lists. Producers
// LPUSH into a lane and workers LMOVE from its tail into their own
// processing list, so every task is in exactly one list at any time.
type TaskQueue struct{ rdb goredis.Cmdable }

// NewTaskQueue returns a queue that also satisfies repository.QueueInspector.
func NewTaskQueue(rdb goredis.Cmdable) *TaskQueue {
	return &TaskQueue{rdb: rdb}
}

var (
	_ repository.TaskQueue      = (*TaskQueue)(nil)
	_ repository.QueueInspector = (*TaskQueue)(nil)
)

func (q *TaskQueue) Enqueue(ctx context.Context, task *entity.WorkTask) error {
	if task == nil {
		return &entity.ValidationError{Field: "task", Message: "task is required"}
	}
	if err := task.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("Enqueue: encode %s: %w", task.TaskID, err)
	}
	if err := q.rdb.LPush(ctx, LaneKey(task.Platform, task.Priority), raw).Err(); err != nil {
		return fmt.Errorf("Enqueue: %w", err)
	}
	metrics.RecordEnqueue(task.Platform, task.Priority)
	return nil
}

// Checkout moves up to capacity tasks into the worker's processing list.
// Payloads that fail to decode stay in the processing list and are skipped.
// If Redis fails after some tasks were moved, those tasks are returned
// without an error so the worker still receives them.
func (q *TaskQueue) Checkout(ctx context.Context, workerID string, platforms []string, capacity int) ([]*entity.WorkTask, error) {
	if capacity <= 0 {
		return nil, nil
	}
	procKey := ProcessingKey(workerID)
	tasks := make([]*entity.WorkTask, 0, capacity)

	for _, platform := range platforms {
		taken := 0
		for priority := entity.PriorityUrgent; priority <= entity.PriorityLow && len(tasks) < capacity; priority++ {
			lane := LaneKey(platform, priority)
			for len(tasks) < capacity {
				raw, err := q.rdb.LMove(ctx, lane, procKey, "RIGHT", "LEFT").Result()
				if errors.Is(err, goredis.Nil) {
					break
				}
				if err != nil {
					metrics.RecordCheckout(platform, taken)
					if len(tasks) > 0 {
						slog.WarnContext(ctx, "checkout interrupted, returning partial batch",
							slog.String("worker_id", workerID),
							slog.Int("tasks", len(tasks)),
							slog.Any("error", err))
						return tasks, nil
					}
					return nil, fmt.Errorf("Checkout: move from %s: %w", lane, err)
				}

				var task entity.WorkTask
				if err := json.Unmarshal([]byte(raw), &task); err != nil {
					slog.WarnContext(ctx, "skipping undecodable task payload",
						slog.String("worker_id", workerID),
						slog.String("lane", lane),
						slog.Any("error", err))
					continue
				}
				tasks = append(tasks, &task)
				taken++
			}
		}
		metrics.RecordCheckout(platform, taken)
		if len(tasks) >= capacity {
			break
		}
	}
	return tasks, nil
}

func (q *TaskQueue) Acknowledge(ctx context.Context, workerID, taskID string) (bool, error) {
	procKey := ProcessingKey(workerID)
	items, err := q.rdb.LRange(ctx, procKey, 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("Acknowledge: %w", err)
	}

	for _, raw := range items {
		var probe struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal([]byte(raw), &probe); err != nil || probe.TaskID != taskID {
			continue
		}
		removed, err := q.rdb.LRem(ctx, procKey, 1, raw).Result()
		if err != nil {
			return false, fmt.Errorf("Acknowledge: %w", err)
		}
		ok := removed > 0
		metrics.RecordAcknowledge(ok)
		return ok, nil
	}
	metrics.RecordAcknowledge(false)
	return false, nil
}

func (q *TaskQueue) Depth(ctx context.Context, platform string, priority int) (int64, error) {
	n, err := q.rdb.LLen(ctx, LaneKey(platform, priority)).Result()
	if err != nil {
		return 0, fmt.Errorf("Depth: %w", err)
	}
	return n, nil
}

func (q *TaskQueue) InFlight(ctx context.Context, workerID string) (int64, error) {
	n, err := q.rdb.LLen(ctx, ProcessingKey(workerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("InFlight: %w", err)
	}
	return n, nil
}
