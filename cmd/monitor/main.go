// Command monitor samples queue lane depths and the live worker count on a
// cron schedule and exposes them, with its own health, on one port.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	redisrepo "parcel-gateway/internal/infra/adapter/persistence/redis"
	"parcel-gateway/internal/infra/monitor"
	"parcel-gateway/internal/observability/logging"
)

func main() {
	logger := logging.Setup("queue-monitor")
	if err := run(logger); err != nil {
		logger.Error("monitor stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitor.NewMetrics()
	cfg := monitor.LoadConfigFromEnv(logger, metrics)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}
	logger.Info("monitor configuration loaded",
		slog.String("schedule", cfg.Schedule),
		slog.String("timezone", cfg.Timezone),
		slog.Any("platforms", cfg.Platforms),
		slog.Duration("sample_timeout", cfg.SampleTimeout),
		slog.Int("health_port", cfg.HealthPort))

	rdb, err := redisrepo.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis", slog.Any("error", err))
		}
	}()

	health := monitor.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort),
		func(ctx context.Context) error { return rdb.Ping(ctx).Err() }, logger)
	healthErr := make(chan error, 1)
	go func() { healthErr <- health.Start(ctx) }()

	sampler := monitor.NewSampler(redisrepo.NewTaskQueue(rdb), redisrepo.NewWorkerRegistry(rdb), cfg, metrics, logger)
	c, err := sampler.Schedule(cfg)
	if err != nil {
		return err
	}
	c.Start()
	sampler.Run()
	health.SetReady(true)
	logger.Info("monitor started")

	var serveErr error
	select {
	case <-ctx.Done():
		health.SetReady(false)
		serveErr = <-healthErr
	case serveErr = <-healthErr:
	}
	<-c.Stop().Done()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	logger.Info("monitor stopped")
	return nil
}
