// Command gateway runs the public API, the worker API and the metrics
// endpoint on three listeners.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"parcel-gateway/internal/config"
	hhttp "parcel-gateway/internal/handler/http"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/middleware"
	"parcel-gateway/internal/handler/http/public"
	"parcel-gateway/internal/handler/http/requestid"
	"parcel-gateway/internal/handler/http/workerapi"
	pgrepo "parcel-gateway/internal/infra/adapter/persistence/postgres"
	redisrepo "parcel-gateway/internal/infra/adapter/persistence/redis"
	"parcel-gateway/internal/infra/adapter/storage/rawfile"
	"parcel-gateway/internal/infra/db"
	"parcel-gateway/internal/observability/logging"
	"parcel-gateway/internal/observability/slo"
	"parcel-gateway/internal/observability/tracing"
	"parcel-gateway/internal/resilience/circuitbreaker"
	"parcel-gateway/internal/upstream"
	"parcel-gateway/internal/usecase/admission"
	"parcel-gateway/internal/usecase/dispatch"
	"parcel-gateway/internal/usecase/egress"
	"parcel-gateway/internal/usecase/property"
	"parcel-gateway/internal/usecase/quota"
	"parcel-gateway/pkg/ratelimit"
)

const serviceName = "parcel-gateway"

func main() {
	logger := logging.Setup(serviceName)
	if err := run(logger); err != nil {
		logger.Error("gateway stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup(serviceName)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	cfg, err := config.LoadGatewayConfig()
	if err != nil {
		return err
	}
	logger.Info("configuration loaded",
		slog.String("public_addr", cfg.PublicAddr),
		slog.String("internal_addr", cfg.InternalAddr),
		slog.String("metrics_addr", cfg.MetricsAddr),
		slog.Int("worker_tokens", len(cfg.WorkerTokens)),
		slog.Bool("dev_auth", cfg.DevAuth),
		slog.String("ratelimit_backend", cfg.RateLimit.Backend),
		slog.String("version", cfg.Version))

	rdb, err := redisrepo.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeWith(logger, "redis", rdb.Close)

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeWith(logger, "database", database.Close)
	if err := db.MigrateUp(ctx, database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	breakers := upstream.NewRegistry(cfg.Breaker, cfg.BreakerOverrides()...)
	clients, err := newUpstreams(cfg, breakers)
	if err != nil {
		return err
	}

	limiter, limiterMetrics, err := newLimiter(cfg.RateLimit, rdb)
	if err != nil {
		return err
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return err
	}
	resolver := auth.NewResolver(cfg.WorkerTokens, verifier)

	proxyCfg, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	extractor := middleware.NewIPExtractor(proxyCfg)

	tracker := quota.NewTracker(redisrepo.NewUsageRepo(rdb))
	quotaGate := middleware.NewQuota(tracker, extractor, cfg.UpgradeURL)

	props := property.NewService(clients[config.UpstreamParser], clients[config.UpstreamML],
		redisrepo.NewPropertyCache(rdb), property.WithCacheTTL(cfg.PropertyTTL))
	dispatcher := dispatch.NewService(
		redisrepo.NewTaskQueue(rdb),
		pgrepo.NewParcelRepo(circuitbreaker.NewDBCircuitBreaker(database)),
		redisrepo.NewWorkerRegistry(rdb),
	)
	proxies := egress.NewService(clients[config.UpstreamProxy], cfg.TimeoutFor(config.UpstreamProxy))

	health := &hhttp.HealthHandler{Redis: rdb, DB: database, Breakers: breakers, Version: cfg.Version}

	var rateLimit func(http.Handler) http.Handler
	if limiter != nil {
		rateLimit = middleware.RateLimit(admission.NewAdmitter(limiter), extractor)
	}

	publicMux := http.NewServeMux()
	public.Register(publicMux, props, quotaGate, tracker)

	internalMux := http.NewServeMux()
	workerapi.Register(internalMux, workerapi.Deps{
		Dispatch: dispatcher,
		Egress:   proxies,
		RawFiles: rawfile.New(cfg.RawStoragePath),
	})

	sloTracker := slo.NewTracker(slo.DefaultMaxSamples)
	sloCron, err := scheduleSLOFlush(sloTracker, logger)
	if err != nil {
		return err
	}
	sloCron.Start()
	defer sloCron.Stop()

	servers := []*http.Server{
		newServer(cfg.PublicAddr, listenerHandler(logger, cfg, health,
			protect(publicMux, auth.Middleware(resolver, "/internal"), rateLimit), sloTracker.Middleware)),
		newServer(cfg.InternalAddr, listenerHandler(logger, cfg, health,
			protect(internalMux, auth.Middleware(resolver), auth.RequireInternal, rateLimit))),
		newServer(cfg.MetricsAddr, metricsMux(health, limiterMetrics)),
	}

	return serve(ctx, logger, servers, cfg.ShutdownTimeout)
}

func closeWith(logger *slog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error("close failed", slog.String("resource", what), slog.Any("error", err))
	}
}

func newUpstreams(cfg *config.GatewayConfig, breakers *upstream.Registry) (map[string]*upstream.Client, error) {
	clients := make(map[string]*upstream.Client, len(cfg.Upstreams))
	for name, u := range cfg.Upstreams {
		c, err := upstream.NewClient(name, u.URL, breakers.Get(name), upstream.WithTimeout(cfg.TimeoutFor(name)))
		if err != nil {
			return nil, fmt.Errorf("upstream %s: %w", name, err)
		}
		clients[name] = c
		slog.Info("upstream registered",
			slog.String("name", name),
			slog.String("url", u.URL),
			slog.Duration("timeout", cfg.TimeoutFor(name)))
	}
	return clients, nil
}

// newLimiter returns a nil limiter when admission control is disabled.
func newLimiter(cfg ratelimit.Config, rdb *goredis.Client) (*ratelimit.Limiter, *ratelimit.PrometheusMetrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("rate limit config: %w", err)
	}
	if !cfg.Enabled {
		slog.Warn("rate limiting is DISABLED - not recommended for production")
		return nil, nil, nil
	}

	m := ratelimit.NewPrometheusMetrics()
	var store ratelimit.BucketStore
	switch cfg.Backend {
	case ratelimit.BackendMemory:
		store = ratelimit.NewMemoryBucketStore(cfg.MaxKeys, m)
	default:
		store = ratelimit.NewRedisBucketStore(rdb, cfg.BucketTTL)
	}
	slog.Info("rate limiting initialized",
		slog.String("backend", cfg.Backend),
		slog.String("key_prefix", cfg.KeyPrefix))
	return ratelimit.NewLimiter(store, ratelimit.WithMetrics(m), ratelimit.WithKeyPrefix(cfg.KeyPrefix)), m, nil
}

func newVerifier(cfg *config.GatewayConfig, logger *slog.Logger) (auth.TokenVerifier, error) {
	if cfg.DevAuth {
		logger.Warn("development auth enabled: bearer tokens are not verified")
		return auth.NewDevVerifier(), nil
	}
	var opts []auth.JWTOption
	if cfg.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
	}
	return auth.NewJWTVerifier(cfg.JWTSecret, opts...)
}

// protect wraps routes in the per-listener auth chain. Nil entries are
// skipped.
func protect(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler
	for _, m := range mw {
		if m != nil {
			chain = append(chain, m)
		}
	}
	return hhttp.Chain(h, chain...)
}

// listenerHandler serves /health unauthenticated and everything else
// through routes, all behind the shared middleware stack.
func listenerHandler(logger *slog.Logger, cfg *config.GatewayConfig, health http.Handler, routes http.Handler, extra ...func(http.Handler) http.Handler) http.Handler {
	root := http.NewServeMux()
	root.Handle("GET /health", health)
	root.Handle("/", routes)

	mw := []func(http.Handler) http.Handler{
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		hhttp.MetricsMiddleware,
	}
	mw = append(mw, extra...)
	mw = append(mw, hhttp.LimitRequest(cfg.MaxBodyBytes), hhttp.Deadline(cfg.RequestTimeout))
	return hhttp.Chain(root, mw...)
}

func metricsMux(health http.Handler, limiterMetrics *ratelimit.PrometheusMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", health)
	mux.Handle("GET /live", hhttp.LiveHandler{})
	if limiterMetrics != nil {
		mux.Handle("GET /metrics", hhttp.MetricsHandler(limiterMetrics.Registry()))
	} else {
		mux.Handle("GET /metrics", hhttp.MetricsHandler())
	}
	return mux
}

func scheduleSLOFlush(t *slo.Tracker, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc("@every 1m", func() {
		w := t.Flush()
		logger.Debug("slo window flushed", slog.Int("requests", w.Requests))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule slo flush: %w", err)
	}
	return c, nil
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serve runs every server until ctx is cancelled or one of them fails, then
// shuts all of them down within timeout.
func serve(ctx context.Context, logger *slog.Logger, servers []*http.Server, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv.BaseContext = func(net.Listener) context.Context { return gctx }
		g.Go(func() error {
			logger.Info("server starting", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", timeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
