package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/harvestlink/agrimarket/api/controllers"
	"github.com/harvestlink/agrimarket/api/routes"
	"github.com/harvestlink/agrimarket/api/validators"
	"github.com/harvestlink/agrimarket/internal/contact"
	"github.com/harvestlink/agrimarket/internal/cron"
	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/internal/marketplace"
	"github.com/harvestlink/agrimarket/internal/site"
	"github.com/harvestlink/agrimarket/pkg/config"
	"github.com/harvestlink/agrimarket/pkg/db"
	"github.com/harvestlink/agrimarket/pkg/instance"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/metrics"
	"github.com/harvestlink/agrimarket/pkg/migrate"
	"github.com/harvestlink/agrimarket/pkg/redis"
)

const serviceName = "web"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "web server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	readiness := map[string]controllers.Pinger{"db": dbClient, "redis": nil}
	deps := routes.Dependencies{Readiness: readiness}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(bootCtx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		readiness["redis"] = redisClient
		deps.RateLimiter = redisClient
	} else {
		logg.Warn(bootCtx, "redis not configured; snapshot cache and rate limits disabled")
	}

	source, err := listings.SelectSource(listings.SourceParams{
		Kind:      cfg.Marketplace.Source(),
		DB:        dbClient.DB(),
		Upstream:  cfg.Upstream,
		MockCount: cfg.Marketplace.MockListings,
	})
	if err != nil {
		return err
	}
	if redisClient != nil {
		source, err = listings.NewCachedSource(source, redisClient, redisClient.ListingSnapshotKey(), cfg.Marketplace.SnapshotTTL, logg)
		if err != nil {
			return fmt.Errorf("listing snapshot cache: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	marketMetrics := metrics.NewMarketplaceMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	engines, err := marketplace.NewRegistry(marketplace.RegistryParams{
		Logger:     logg,
		Source:     source,
		Metrics:    marketMetrics,
		SessionTTL: cfg.Marketplace.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("marketplace registry: %w", err)
	}

	contactParams := contact.ServiceParams{
		Repo:      contact.NewRepository(dbClient.DB()),
		Validate:  validators.Validate,
		Logger:    logg,
		RateLimit: cfg.Contact.RateLimit,
		Window:    cfg.Contact.RateLimitWindow,
	}
	if redisClient != nil {
		contactParams.Limiter = redisClient
	}
	contactService, err := contact.NewService(contactParams)
	if err != nil {
		return fmt.Errorf("contact service: %w", err)
	}

	renderer, err := site.NewRenderer()
	if err != nil {
		return fmt.Errorf("page templates: %w", err)
	}

	deps.Renderer = renderer
	deps.Engines = engines
	deps.ContactService = contactService
	deps.Gatherer = reg
	deps.HTTPMetrics = metrics.NewHTTPMetrics(reg)
	deps.ChartMetrics = marketMetrics

	sweeper, err := newCronService(logg, jobMetrics, "session-sweep", cfg.Marketplace.SweepInterval,
		func() (cron.Job, error) { return cron.NewSessionSweepJob(logg, engines) })
	if err != nil {
		return err
	}
	refresher, err := newCronService(logg, jobMetrics, "snapshot-refresh", cfg.Marketplace.RefreshInterval,
		func() (cron.Job, error) { return cron.NewSnapshotRefreshJob(logg, engines) })
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"source":   cfg.Marketplace.Source(),
	})
	logg.Info(ctx, "starting web server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(sweeper.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(refresher.Run(gctx)) })
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(ctx, "web server shutting down gracefully")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newCronService(logg *logger.Logger, m *metrics.JobMetrics, name string, interval time.Duration, build func() (cron.Job, error)) (*cron.Service, error) {
	job, err := build()
	if err != nil {
		return nil, fmt.Errorf("%s job: %w", name, err)
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		return nil, fmt.Errorf("%s registry: %w", name, err)
	}
	svc, err := cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   logg,
		Registry: registry,
		Metrics:  m,
		Interval: interval,
	})
	if err != nil {
		return nil, fmt.Errorf("%s service: %w", name, err)
	}
	return svc, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
