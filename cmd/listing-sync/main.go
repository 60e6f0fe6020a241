package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/internal/listings/consumer"
	"github.com/harvestlink/agrimarket/pkg/config"
	"github.com/harvestlink/agrimarket/pkg/instance"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/pubsub"
	"github.com/harvestlink/agrimarket/pkg/redis"
)

const serviceName = "listing-sync"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, true, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	// Only Invalidate is used, so the inner source is never fetched here.
	cache, err := listings.NewCachedSource(
		listings.SourceFunc(func(context.Context) ([]listings.Listing, error) { return nil, nil }),
		redisClient,
		redisClient.ListingSnapshotKey(),
		cfg.Marketplace.SnapshotTTL,
		logg,
	)
	requireResource(ctx, logg, "snapshot cache", err)

	syncConsumer, err := consumer.NewListingSyncConsumer(cache, pubsubClient.ListingsSubscription(), logg)
	requireResource(ctx, logg, "listing sync consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     instance.GetID(),
		"subscription": cfg.PubSub.ListingsSubscription,
	})
	logg.Info(runCtx, "listing sync worker ready")

	if err := syncConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "listing sync worker not working", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "listing sync worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
