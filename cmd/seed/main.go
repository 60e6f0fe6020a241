package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/pkg/config"
	"github.com/harvestlink/agrimarket/pkg/db"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/migrate"
	"github.com/harvestlink/agrimarket/pkg/outbox"
)

const serviceName = "seed"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	count := flag.Int("count", 60, "number of mock listings to write")
	seed := flag.Uint64("seed", 42, "generator seed")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "count": *count, "seed": *seed})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	items := listings.GenerateMock(*count, *seed, time.Now())
	repo := listings.NewRepository(dbClient.DB())
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	writer, err := listings.NewWriter(dbClient, repo, events)
	requireResource(ctx, logg, "listing writer", err)
	requireResource(ctx, logg, "listing upsert", writer.Save(ctx, items))

	total, err := repo.Count(ctx)
	requireResource(ctx, logg, "listing count", err)
	logg.Info(logg.WithField(ctx, "total", total), "mock listings seeded")

	fmt.Printf("seeded %d listings (%d total)\n", len(items), total)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
