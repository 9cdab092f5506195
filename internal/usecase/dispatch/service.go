// Package dispatch implements the worker side of the gateway: handing out
// queued scrape tasks, persisting submitted results and tracking worker
// liveness.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/observability/logging"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/internal/repository"
)

// Checkout sizing and polling hints returned to workers.
const (
	DefaultCapacity = 10
	MaxCapacity     = 100

	RetryAfterBusy = 5
	RetryAfterIdle = 30

	// maxReportedErrors bounds the error strings echoed back for one batch.
	maxReportedErrors = 10
)

// Service coordinates the task queue, the parcel store and the worker registry.
type Service struct {
	queue   repository.TaskQueue
	parcels repository.ParcelRepository
	workers repository.WorkerRegistry
	now     func() time.Time
	newID   func() string
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the task id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService creates a dispatch Service.
func NewService(queue repository.TaskQueue, parcels repository.ParcelRepository, workers repository.WorkerRegistry, opts ...Option) *Service {
	s := &Service{
		queue:   queue,
		parcels: parcels,
		workers: workers,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WorkBatch is the answer to a worker's pull.
type WorkBatch struct {
	Tasks      []*entity.WorkTask `json:"tasks"`
	RetryAfter int                `json:"retry_after"`
}

// ClampCapacity maps a requested pull size into 1..MaxCapacity. Zero means
// the caller did not ask for a size.
func ClampCapacity(n int) int {
	switch {
	case n == 0:
		return DefaultCapacity
	case n < 1:
		return 1
	case n > MaxCapacity:
		return MaxCapacity
	}
	return n
}

// Work checks out up to capacity tasks for workerID from platforms, in the
// order given.
func (s *Service) Work(ctx context.Context, workerID string, platforms []string, capacity int) (*WorkBatch, error) {
	if len(platforms) == 0 {
		return nil, &entity.ValidationError{Field: "platforms", Message: "at least one platform is required"}
	}
	for _, p := range platforms {
		if err := entity.ValidatePlatform(p); err != nil {
			return nil, err
		}
	}

	tasks, err := s.queue.Checkout(ctx, workerID, platforms, ClampCapacity(capacity))
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if tasks == nil {
		tasks = []*entity.WorkTask{}
	}

	retry := RetryAfterIdle
	if len(tasks) > 0 {
		retry = RetryAfterBusy
	}
	return &WorkBatch{Tasks: tasks, RetryAfter: retry}, nil
}

// SubmitSummary reports the outcome of a result batch.
type SubmitSummary struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// SubmitResults persists each record and acknowledges its task exactly once,
// whether or not the record was stored. A failing record is counted and the
// batch carries on.
func (s *Service) SubmitResults(ctx context.Context, workerID string, results []*entity.ParcelResult) (*SubmitSummary, error) {
	logger := logging.FromContext(ctx)
	summary := &SubmitSummary{Errors: []string{}}

	for i, res := range results {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if res == nil {
			summary.fail(fmt.Sprintf("record %d: empty", i))
			continue
		}

		inserted, err := s.store(ctx, workerID, res)
		switch {
		case err != nil:
			summary.fail(res.ParcelID + ": " + err.Error())
			logger.WarnContext(ctx, "result rejected",
				slog.String("worker_id", workerID),
				slog.String("task_id", res.TaskID),
				slog.String("parcel_id", res.ParcelID),
				slog.Any("error", err))
		case inserted:
			summary.Inserted++
		default:
			summary.Updated++
		}

		if res.TaskID == "" {
			continue
		}
		if _, err := s.queue.Acknowledge(ctx, workerID, res.TaskID); err != nil {
			logger.WarnContext(ctx, "acknowledge after result failed",
				slog.String("worker_id", workerID),
				slog.String("task_id", res.TaskID),
				slog.Any("error", err))
		}
	}

	metrics.RecordResults(summary.Inserted, summary.Updated, summary.Failed)
	return summary, nil
}

func (s *Service) store(ctx context.Context, workerID string, res *entity.ParcelResult) (bool, error) {
	if err := res.Validate(); err != nil {
		return false, err
	}
	if res.ScrapedAt.IsZero() {
		res.ScrapedAt = s.now().UTC()
	}
	return s.parcels.Upsert(ctx, res, workerID)
}

func (sum *SubmitSummary) fail(msg string) {
	sum.Failed++
	if len(sum.Errors) < maxReportedErrors {
		sum.Errors = append(sum.Errors, msg)
	}
}

// Complete acknowledges taskID for workerID.
func (s *Service) Complete(ctx context.Context, workerID, taskID string) (bool, error) {
	if taskID == "" {
		return false, &entity.ValidationError{Field: "task_id", Message: "task_id is required"}
	}
	ok, err := s.queue.Acknowledge(ctx, workerID, taskID)
	if err != nil {
		return false, fmt.Errorf("acknowledge %s: %w", taskID, err)
	}
	return ok, nil
}

// FailureReport is what a worker sends when it gives up on a task.
type FailureReport struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// Fail records a task failure. The task stays in the worker's processing set.
func (s *Service) Fail(ctx context.Context, workerID, taskID string, report FailureReport) {
	metrics.TasksFailedTotal.Inc()
	slog.WarnContext(ctx, "task failed",
		slog.String("worker_id", workerID),
		slog.String("task_id", taskID),
		slog.String("error", report.Error),
		slog.Bool("retryable", report.Retryable))
}

// HeartbeatReply is returned to a worker after a heartbeat.
type HeartbeatReply struct {
	Acknowledged bool     `json:"acknowledged"`
	Commands     []string `json:"commands"`
}

// Heartbeat stores the worker's status with the current time.
func (s *Service) Heartbeat(ctx context.Context, workerID string, status entity.WorkerStatus) (*HeartbeatReply, error) {
	if workerID == "" {
		return nil, &entity.ValidationError{Field: "worker_id", Message: "worker_id is required"}
	}
	if err := s.workers.RecordHeartbeat(ctx, workerID, status, s.now()); err != nil {
		return nil, fmt.Errorf("record heartbeat: %w", err)
	}
	metrics.HeartbeatsTotal.Inc()
	return &HeartbeatReply{Acknowledged: true, Commands: []string{}}, nil
}

// EnqueueRequest describes a task submitted by a producer.
type EnqueueRequest struct {
	TaskID   string          `json:"task_id,omitempty"`
	Type     string          `json:"type,omitempty"`
	Platform string          `json:"platform"`
	Target   json.RawMessage `json:"target"`
	Priority int             `json:"priority,omitempty"`
}

// Enqueue fills in defaults, validates and queues a task.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*entity.WorkTask, error) {
	task := &entity.WorkTask{
		TaskID:    req.TaskID,
		Type:      req.Type,
		Platform:  req.Platform,
		Target:    req.Target,
		Priority:  req.Priority,
		CreatedAt: s.now().UTC(),
	}
	if task.TaskID == "" {
		task.TaskID = s.newID()
	}
	if task.Type == "" {
		task.Type = entity.DefaultTaskType
	}
	if task.Priority == 0 {
		task.Priority = entity.PriorityNormal
	}
	if len(task.Target) == 0 {
		return nil, &entity.ValidationError{Field: "target", Message: "target is required"}
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return task, nil
}

// IsValidation reports whether err is a caller mistake rather than a store failure.
func IsValidation(err error) bool {
	return errors.Is(err, entity.ErrInvalidInput)
}
