package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendchart/internal/amqp"
	"spendchart/internal/cache"
	"spendchart/internal/catalog"
	"spendchart/internal/chart"
	"spendchart/internal/cli"
	"spendchart/internal/config"
	apphttp "spendchart/internal/http"
	"spendchart/internal/ledger"
	"spendchart/internal/log"
	"spendchart/internal/services"
)

const cacheSweepInterval = time.Minute

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentApp)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info("Catalog loaded",
		"categories", len(cat.Categories()),
		"source", cfg.CatalogFile)

	projections := cache.NewLRUCache[chart.Projection](cfg.ProjectionCacheSize, cfg.ProjectionCacheTTL)
	janitor := cache.NewJanitor(cacheSweepInterval, logger.WithComponent(log.ComponentCache).Slog())
	janitor.Register(projections)

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithProjectionCache(projections),
	}
	if cfg.NotificationsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			// The tracker works without notifications.
			logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Ledger events enabled",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
	}

	svc := services.NewExpenseService(ledger.New(), cat, opts...)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("Failed to close expense service", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})

	logger.Info("Starting spendchart server", "port", cfg.Port)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
