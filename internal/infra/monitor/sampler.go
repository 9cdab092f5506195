package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/internal/repository"
)

// Sample is one observation of the queue.
type Sample struct {
	// Depths is keyed by platform, then priority.
	Depths      map[string]map[int]int64
	LiveWorkers int
}

// Sampler reads queue and worker sizes.
type Sampler struct {
	queue     repository.QueueInspector
	workers   repository.WorkerRegistry
	platforms []string
	timeout   time.Duration
	metrics   *Metrics
	logger    *slog.Logger
}

func NewSampler(queue repository.QueueInspector, workers repository.WorkerRegistry, cfg *Config, m *Metrics, logger *slog.Logger) *Sampler {
	return &Sampler{
		queue:     queue,
		workers:   workers,
		platforms: cfg.Platforms,
		timeout:   cfg.SampleTimeout,
		metrics:   m,
		logger:    logger,
	}
}

// Sample reads every lane and the live worker count and publishes them.
// A failing read is skipped so the remaining gauges still update; the
// errors are joined in the result.
func (s *Sampler) Sample(ctx context.Context) (*Sample, error) {
	out := &Sample{Depths: make(map[string]map[int]int64, len(s.platforms))}
	var errs []error

	for _, platform := range s.platforms {
		lanes := make(map[int]int64, entity.PriorityLow)
		for priority := entity.PriorityUrgent; priority <= entity.PriorityLow; priority++ {
			depth, err := s.queue.Depth(ctx, platform, priority)
			if err != nil {
				errs = append(errs, fmt.Errorf("depth %s/%d: %w", platform, priority, err))
				continue
			}
			lanes[priority] = depth
			metrics.SetQueueDepth(platform, priority, depth)
		}
		out.Depths[platform] = lanes
	}

	live, err := s.workers.CountLive(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("live workers: %w", err))
	} else {
		out.LiveWorkers = live
		metrics.LiveWorkers.Set(float64(live))
	}

	return out, errors.Join(errs...)
}

// Run performs one timed sampling pass for the cron job.
func (s *Sampler) Run() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sample, err := s.Sample(ctx)
	if err != nil {
		s.metrics.RecordRun("failure", time.Since(start).Seconds())
		s.logger.Error("queue sample failed", slog.Any("error", err))
		return
	}
	s.metrics.RecordRun("success", time.Since(start).Seconds())
	s.logger.Debug("queue sampled",
		slog.Int("live_workers", sample.LiveWorkers),
		slog.Duration("duration", time.Since(start)))
}

// Schedule registers Run on a new cron scheduler. The caller starts and
// stops it.
func (s *Sampler) Schedule(cfg *Config) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		s.logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule, s.Run); err != nil {
		return nil, fmt.Errorf("add sampling job: %w", err)
	}
	return c, nil
}
