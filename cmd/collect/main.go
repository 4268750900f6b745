// Command collect runs a single collection cycle and exits. Useful for
// backfilling a missed window or smoke-testing a deploy.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"pixhistorial/internal/collector"
	"pixhistorial/internal/config"
	"pixhistorial/internal/database"
	"pixhistorial/internal/source"
	"pixhistorial/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline for the cycle")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	client := source.NewClient(
		cfg.Source.URL,
		source.WithTimeout(cfg.Source.Timeout),
		source.WithLogger(logger),
	)

	coll := collector.New(collector.Config{
		MaxAttempts:      cfg.Collector.MaxAttempts,
		BaseDelay:        cfg.Collector.BaseDelay,
		MaxDelay:         cfg.Collector.MaxDelay,
		JitterFraction:   cfg.Collector.JitterFraction,
		BreakerThreshold: cfg.Collector.BreakerThreshold,
		BreakerCooldown:  cfg.Collector.BreakerCooldown,
	}, client, store.New(pool, logger), logger)

	if err := coll.RunCycle(ctx); err != nil {
		logger.Error("collection failed", "error", err)
		os.Exit(1)
	}

	logger.Info("collection complete")
}
