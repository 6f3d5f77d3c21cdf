package main

import (
	"context"
	"os"
	"time"

	"envelopes/internal/amqp"
	"envelopes/internal/cache"
	"envelopes/internal/cli"
	"envelopes/internal/log"
	"envelopes/internal/services"
	"envelopes/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().With(log.FieldComponent, log.ComponentWorker)

	logger.Info("Starting goal-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPNotificationQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var stringCache cache.StringCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ForecastCacheTTL)
		if err := redisCache.Ping(context.Background()); err != nil {
			logger.Warn("Redis unavailable, using in-memory forecast cache", "error", err)
			stringCache = cache.NewMemoryCache()
		} else {
			stringCache = redisCache
			defer redisCache.Close()
		}
	} else {
		stringCache = cache.NewMemoryCache()
	}

	goalSvc := services.NewGoalService(repo, stringCache, amqpClient)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Sweep transactions whose sync publish was missed while the server or
	// broker was down, then keep sweeping on the configured interval.
	syncWorker := worker.NewSyncWorker(repo, amqpClient, cfg.SyncBatchSize, cfg.SyncInterval)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
		// Keep running, the periodic sweep will retry
	}
	go func() {
		if err := syncWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Sync worker stopped", "error", err)
		}
	}()

	// React to synced transactions so a contribution triggers its goal
	// evaluation immediately instead of waiting for the cron pass.
	syncConsumer := worker.NewSyncConsumer(repo, amqpClient, goalSvc)
	go func() {
		if err := syncConsumer.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Sync consumer stopped", "error", err)
		}
	}()

	goalWorker := worker.NewGoalWorker(goalSvc, cfg.EvaluationCron)
	if err := goalWorker.Register(ctx); err != nil {
		logger.Error("Failed to register goal evaluation job", "error", err)
		os.Exit(1)
	}
	goalWorker.Start()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START set, running evaluation pass now")
		goalWorker.RunNow(ctx)
	}

	cli.WaitForShutdown(ctx, done)
	goalWorker.Stop()
	logger.Info("goal-worker stopped gracefully")
}
