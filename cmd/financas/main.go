package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/core"
	apphttp "financas/internal/http"
	"financas/internal/log"
	"financas/internal/services"
)

const (
	viewCacheSize        = 64
	cacheCleanupInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting financas server", "port", cfg.Port, "backend", cfg.DataBackend)

	backend := cli.OpenStore(context.Background(), logger, cfg)
	amqpClient := cli.ConnectAMQP(logger.WithComponent(log.ComponentAMQP), cfg)

	views := cache.NewLoader[core.MonthlyView](viewCacheSize, cfg.ViewCacheTTL)
	caches := cache.NewManager(logger.Logger)
	caches.Register(views.Cache())
	caches.StartCleanup(cacheCleanupInterval)

	// A nil *amqp.Client must not become a non-nil interface.
	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	finance := services.NewFinanceService(backend.Store, publisher, views)
	finance.SetLocation(cfg.Location())
	shopping := services.NewShoppingService(backend.Store, finance, services.ShoppingConfig{
		CategoryID:    cfg.ShoppingCategoryID,
		PaymentMethod: core.PaymentMethod(cfg.ShoppingPaymentMethod),
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Finance:            finance,
		Shopping:           shopping,
		Store:              backend.Store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// The workers write to the same store; their events keep the cached
	// views of this process honest.
	var subscriber *amqp.Client
	if amqpClient != nil {
		var err error
		subscriber, err = amqp.NewSubscriber(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to subscribe to transaction events; cached views expire by TTL only",
				log.FieldError, err, "view_cache_ttl", cfg.ViewCacheTTL.String())
		}
	} else if cfg.DataBackend != "memory" {
		logger.Warn("AMQP not configured; changes made by the workers appear once cached views expire",
			"view_cache_ttl", cfg.ViewCacheTTL.String())
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if subscriber != nil {
			if err := subscriber.Close(); err != nil {
				logger.Warn("Failed to close AMQP subscriber", log.FieldError, err)
			}
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

	if subscriber != nil {
		go func() {
			err := subscriber.ConsumeTransactionEvents(ctx, finance.HandleTransactionEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("View invalidation stopped", log.FieldError, err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
