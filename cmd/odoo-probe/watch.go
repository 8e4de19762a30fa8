package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/odoo-probe/internal/config"
	"github.com/dandantas/odoo-probe/internal/database"
	"github.com/dandantas/odoo-probe/internal/handler"
	"github.com/dandantas/odoo-probe/internal/metrics"
	"github.com/dandantas/odoo-probe/internal/scheduler"
	"github.com/dandantas/odoo-probe/internal/service"
	"github.com/dandantas/odoo-probe/internal/webhook"
	"github.com/dandantas/odoo-probe/internal/worker"
	"github.com/dandantas/odoo-probe/pkg/middleware"
)

// runWatch runs the scheduled prober and its HTTP surface until ctx is done
func runWatch(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	config.InitLogger(cfg, stdout)

	slog.Info("Starting odoo-probe watcher",
		"version", version,
		"target_url", cfg.OdooURL,
		"schedule", cfg.WatchSchedule,
	)

	p, err := newProber(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := service.MonitorOptions{
		Observer:         m,
		FailureThreshold: cfg.AlertFailureThreshold,
	}

	// Left nil when MongoDB is not configured; the handlers answer 503
	var (
		history handler.HistoryQuerier
		alerts  handler.AlertQuerier
		pinger  handler.Pinger
	)

	if cfg.HistoryEnabled() {
		db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				slog.Error("Failed to disconnect from MongoDB", "error", err)
			}
		}()

		retention := time.Duration(cfg.HistoryRetentionDays) * 24 * time.Hour
		if err := database.CreateIndexes(ctx, db, retention); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		historyService := service.NewHistoryService(database.NewProbeRepository(db))
		alertService := service.NewAlertService(database.NewAlertRepository(db))

		opts.History = historyService
		opts.Alerts = alertService
		history, alerts, pinger = historyService, alertService, db
	} else {
		slog.Info("MONGO_URI is not set, probe history is disabled")
	}

	if cfg.AlertsEnabled() {
		opts.Alerter = webhook.NewDispatcher(webhook.Target{URL: cfg.AlertWebhookURL}, cfg.DefaultWebhookTimeout)
		slog.Info("Webhook alerts enabled", "failure_threshold", cfg.AlertFailureThreshold)
	}

	monitor := service.NewMonitor(p, opts)

	// One worker keeps probe runs, and therefore token file writes, sequential
	pool := worker.NewWorkerPool(1, cfg.WorkerQueueSize)
	pool.SetExecutor(monitor.Run)
	pool.OnRejected(m.ObserveQueueRejected)
	pool.Start()

	sched, err := scheduler.NewScheduler(cfg.WatchSchedule, pool)
	if err != nil {
		pool.Stop()
		return err
	}
	sched.Start(ctx)

	router := handler.NewRouter(
		handler.NewHealthHandler(monitor, pinger, version),
		handler.NewProbeHandler(pool),
		handler.NewHistoryHandler(history),
		handler.NewAlertHandler(alerts),
		m.Handler(),
		middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   cfg.CORSAllowedMethods,
			AllowedHeaders:   cfg.CORSAllowedHeaders,
			AllowCredentials: cfg.CORSAllowCredentials,
			MaxAge:           cfg.CORSMaxAge,
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal, initiating graceful shutdown")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Drains queued runs before MongoDB is disconnected
	pool.Stop()

	slog.Info("odoo-probe watcher stopped")
	return runErr
}
