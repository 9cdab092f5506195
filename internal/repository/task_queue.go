package repository

import (
	"context"

	"parcel-gateway/internal/domain/entity"
)

// TaskQueue hands scrape tasks to workers.
//
// A task is always in exactly one place: a lane, or the processing set of the
// worker that checked it out. Implementations must move tasks between the two
// atomically.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *entity.WorkTask) error
	// Checkout returns up to capacity tasks, scanning platforms in the given
	// order and priorities from urgent to low.
	Checkout(ctx context.Context, workerID string, platforms []string, capacity int) ([]*entity.WorkTask, error)
	// Acknowledge removes taskID from the worker's processing set. It reports
	// false when the task is not there.
	Acknowledge(ctx context.Context, workerID, taskID string) (bool, error)
}

// QueueInspector exposes read-only queue sizes for monitoring.
type QueueInspector interface {
	Depth(ctx context.Context, platform string, priority int) (int64, error)
	InFlight(ctx context.Context, workerID string) (int64, error)
}
