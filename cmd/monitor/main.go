package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/cache"
	"github.com/hamed0406/servicewatch/internal/config"
	"github.com/hamed0406/servicewatch/internal/httpapi"
	"github.com/hamed0406/servicewatch/internal/logging"
	"github.com/hamed0406/servicewatch/internal/notify"
	"github.com/hamed0406/servicewatch/internal/probe"
	"github.com/hamed0406/servicewatch/internal/repo"
	"github.com/hamed0406/servicewatch/internal/repo/postgres"
	"github.com/hamed0406/servicewatch/internal/repo/sqlite"
	"github.com/hamed0406/servicewatch/internal/scan"
	"github.com/hamed0406/servicewatch/internal/scheduler"
)

type checkStore interface {
	repo.ResultStore
	repo.IncidentStore
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	services, err := config.LoadServices(cfg.ServicesFile)
	if err != nil {
		// A broken file must not keep the API down; run with zero
		// services so the operator can see the error and fix it.
		logger.Warn("services_load_error", zap.String("file", cfg.ServicesFile), zap.Error(err))
		services = nil
	}
	logger.Info("services_loaded",
		zap.String("file", cfg.ServicesFile),
		zap.Int("count", len(services)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store   checkStore
		closeDB func()
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_open", zap.Error(err))
		}
		store, closeDB = pg, pg.Close
	} else {
		sq, err := sqlite.New(cfg.DBPath, logger)
		if err != nil {
			logger.Fatal("sqlite_open", zap.String("path", cfg.DBPath), zap.Error(err))
		}
		store, closeDB = sq, func() { _ = sq.Close() }
	}
	defer closeDB()

	var notifier notify.Notifier
	if cfg.SlackWebhook != "" {
		notifier = notify.NewSlack(cfg.SlackWebhook)
	}

	resolver := probe.NewResolverPool(4)
	defer resolver.Close()

	c := cache.New(cache.DefaultCapacity)
	alerter := scheduler.NewAlerter(logger, notifier, store, scheduler.AlerterConfig{
		AlertOnRecovery: true,
		Cooldown:        cfg.AlertCooldown,
	})
	engine := scheduler.NewEngine(logger, services,
		probe.NewDispatcher(resolver), store, c, alerter, cfg.Interval)

	api := httpapi.NewServer(logger, services, store, c, alerter,
		scan.NewScanner(2*time.Second), cfg.UptimeWindow)
	engine.SetPublisher(api.PublishCycle)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_serve", zap.Error(err))
			stop()
		}
	}()

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown", zap.Error(err))
	}

	// Wait for the in-flight cycle to commit before closing the store.
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("engine_stop_timeout")
	}
	logger.Info("stopped")
}
