package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eazycard/eazycard/internal/config"
	"github.com/eazycard/eazycard/internal/infra"
	"github.com/eazycard/eazycard/internal/logging"
	"github.com/eazycard/eazycard/internal/metrics"
	"github.com/eazycard/eazycard/internal/routes"
	"github.com/eazycard/eazycard/internal/scheduler"
	"github.com/eazycard/eazycard/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.AppName)
	logger.Info("starting", "config", cfg)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.Store == config.StorePostgres {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("redis disabled: no idempotency, rate cache or rate limiting")
	}

	var awsClients *infra.AWSClients
	if cfg.Store == config.StoreDynamoDB || cfg.Notifier == config.NotifierSES || cfg.SecretSource == config.SecretSourceManager {
		awsCfg, err := infra.NewAWSConfig(ctx, cfg.AWS)
		if err != nil {
			logger.Error("load aws config", "error", err)
			os.Exit(1)
		}
		clients := infra.NewAWSClients(awsCfg)
		awsClients = &clients
	}

	deps := routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache,
		AWS:     awsClients,
		Logger:  logger,
		Metrics: metrics.New(),
	}
	svcs, err := routes.NewServices(ctx, deps)
	if err != nil {
		logger.Error("build services", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, deps, svcs, logger)

	sched := scheduler.New(svcs.Statements, cfg.StatementSchedule, cfg.StatementTimeout, logger.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		logger.Error("start scheduler", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("statement run still in progress at shutdown")
	}

	if err := svcs.Dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("pending notifications dropped", "error", err)
	}

	logger.Info("server exited cleanly")
}
