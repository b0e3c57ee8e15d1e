package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"financas/internal/cli"
	"financas/internal/log"
	"financas/internal/services"
)

const shutdownTimeout = 30 * time.Second

// cronLogger routes cron's own messages to the worker logger.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, log.FieldError, err)...)
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentRecurring)
	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateSharedBackend("recurring-worker"); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting recurring-worker",
		"schedule", cfg.RecurringSchedule,
		"timezone", cfg.Timezone,
		"backend", cfg.DataBackend)

	backend := cli.OpenStore(context.Background(), logger, cfg)
	amqpClient := cli.ConnectAMQP(logger.WithComponent(log.ComponentAMQP), cfg)

	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	finance := services.NewFinanceService(backend.Store, publisher, nil)
	finance.SetLocation(cfg.Location())
	processor := services.NewRecurringProcessor(finance)

	scheduler := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warn("Recurring run still in progress at shutdown")
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Failed to close storage backend", log.FieldError, err)
		}
	})

	run := func() {
		start := time.Now()
		count, err := processor.ProcessDue(ctx, start)
		if err != nil {
			logger.Error("Recurring processing failed", log.FieldError, err)
			return
		}
		logger.Info("Recurring processing complete",
			"transactions_created", count,
			log.FieldDuration, time.Since(start).Milliseconds())
	}

	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, run); err != nil {
		logger.Error("Invalid recurring schedule", log.FieldError, err, "schedule", cfg.RecurringSchedule)
		os.Exit(1)
	}

	// Templates that fell due while the worker was down are copied right away.
	run()
	scheduler.Start()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker stopped")
}
