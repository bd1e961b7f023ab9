package main

import (
	"context"
	"errors"
	"os"

	"spendchart/internal/amqp"
	"spendchart/internal/cli"
	"spendchart/internal/log"
	"spendchart/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if !cfg.NotificationsEnabled() {
		logger.Error("AMQP_URL is required for ledger-audit")
		os.Exit(1)
	}

	logger.Info("Starting ledger-audit", "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	audit := worker.NewAuditWorker(logger)
	err = client.ConsumeLedgerEvents(ctx, audit.HandleLedgerEvent)
	audit.Flush(context.Background())

	stats := audit.Stats()
	logger.Info("ledger-audit stopped",
		"events_seen", stats.Seen,
		log.FieldTotalCents, stats.Total.Cents,
		"mismatches", stats.Mismatches,
		"version_gaps", stats.Gaps,
		"duplicates", stats.Duplicates)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
}
