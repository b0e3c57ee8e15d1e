package main

import (
	"context"
	"errors"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/log"
	gsheet "financas/internal/sheets/google"
	"financas/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	if err := errors.Join(cfg.ValidateExport(), cfg.ValidateSharedBackend("financas-worker")); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting financas-worker",
		"backend", cfg.DataBackend,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	backend := cli.OpenStore(context.Background(), logger, cfg)

	exporter, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Failed to close storage backend", log.FieldError, err)
		}
	})

	if err := exporter.EnsureHeader(ctx); err != nil {
		logger.Error("Failed to prepare sheet header", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewExportWorker(backend.Store, exporter, cfg.SyncBatchSize)

	// Catch up on whatever changed while the worker was down.
	start := time.Now()
	if n, err := w.SyncAll(ctx); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err, "exported", n)
	} else {
		logger.Info("Startup sync complete", "exported", n, log.FieldDuration, time.Since(start).Milliseconds())
	}

	go func() {
		err := amqpClient.ConsumeTransactionEvents(ctx, w.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption stopped", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
