package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"envelopes/internal/amqp"
	"envelopes/internal/cache"
	"envelopes/internal/cli"
	apphttp "envelopes/internal/http"
	"envelopes/internal/log"
	"envelopes/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().With(log.FieldComponent, log.ComponentHTTP)

	logger.Info("Starting envelopes server")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// AMQP is optional: without it the server still works, sync messages are
	// picked up later by the worker's startup sweep.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPNotificationQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without sync publishing", "error", err)
			amqpClient = nil
		} else {
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	}

	var stringCache cache.StringCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ForecastCacheTTL)
		if err := redisCache.Ping(context.Background()); err != nil {
			logger.Warn("Redis unavailable, using in-memory forecast cache", "error", err)
			stringCache = cache.NewMemoryCache()
		} else {
			logger.Info("Redis cache initialized", "addr", cfg.RedisAddr)
			stringCache = redisCache
			defer redisCache.Close()
		}
	} else {
		stringCache = cache.NewMemoryCache()
	}

	var publisher services.NotificationPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	envelopeSvc := services.NewEnvelopeService(repo, amqpClient)
	goalSvc := services.NewGoalService(repo, stringCache, publisher)
	defer envelopeSvc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, envelopeSvc, goalSvc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
