package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fxledger/internal/cli"
	"fxledger/internal/log"
	"fxledger/internal/services"
	"fxledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Stdout)
	logger.Info("Starting rates-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	ctx = log.NewContext(ctx, logger)

	stores := cli.InitBackend(ctx, logger, cfg)
	defer stores.Cleanup()

	provider := cli.InitRateProvider(logger, cfg, stores.Snapshots)

	amqpClient := cli.InitAMQP(logger, cfg)
	var publisher services.RefreshPublisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	refresher := services.NewRateRefresher(provider, publisher, cfg.RefreshConcurrency, logger)
	ratesWorker := worker.NewRatesWorker(refresher, cfg.RateBases, cfg.RateRefreshInterval, logger)

	logger.Info("Rate refresher configured",
		"bases", cfg.RateBases,
		"interval", cfg.RateRefreshInterval,
		"concurrency", cfg.RefreshConcurrency,
		"backend", cfg.DataBackend)

	// On-demand refresh requests from other services
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRefreshRequests(ctx, refresher.HandleRefreshRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	if err := ratesWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Rates worker stopped", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Rates-worker shutdown complete")
}
