package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pixhistorial/internal/collector"
	"pixhistorial/internal/config"
	"pixhistorial/internal/database"
	"pixhistorial/internal/health"
	"pixhistorial/internal/scheduler"
	"pixhistorial/internal/server"
	"pixhistorial/internal/source"
	"pixhistorial/internal/store"
	"pixhistorial/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	startedAt := time.Now().UTC()

	logger.Info("starting pixhistorial",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"source_url", cfg.Source.URL,
		"schedule", cfg.Collector.Schedule,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

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

	logger.Info("database connected")

	gateway := store.New(pool, logger)

	// Rate source client
	client := source.NewClient(
		cfg.Source.URL,
		source.WithTimeout(cfg.Source.Timeout),
		source.WithLogger(logger),
	)

	// Collection cycle driver
	coll := collector.New(collector.Config{
		MaxAttempts:      cfg.Collector.MaxAttempts,
		BaseDelay:        cfg.Collector.BaseDelay,
		MaxDelay:         cfg.Collector.MaxDelay,
		JitterFraction:   cfg.Collector.JitterFraction,
		BreakerThreshold: cfg.Collector.BreakerThreshold,
		BreakerCooldown:  cfg.Collector.BreakerCooldown,
	}, client, gateway, logger)

	// Scheduler
	sched, err := scheduler.New(cfg.Collector.Schedule, coll, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Health + HTTP read layer
	agg := health.New(gateway, sched, cfg.Health.ProbeTimeout, startedAt, logger)
	srv := server.New(cfg.Server, gateway, agg, sched, logger)

	var g errgroup.Group
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", "error", err)
		}
		return sched.Stop(shutdownCtx)
	})

	logger.Info("pixhistorial running",
		"instance_id", cfg.Instance.ID,
		"port", cfg.Server.Port,
	)

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("pixhistorial stopped")
}
