package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"qrforge/internal/batch"
	"qrforge/internal/config"
	"qrforge/internal/database"
	"qrforge/internal/database/migration"
	handlers "qrforge/internal/http/handler"
	"qrforge/internal/http/middleware"
	"qrforge/internal/logging"
	qrotel "qrforge/internal/otel"
	"qrforge/internal/qrcode"
	"qrforge/internal/repository/sqlstore"
	"qrforge/internal/service"
	"qrforge/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title QRForge API
// @version 1.0
// @description QR code generation, styling and batch export.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", time.UTC).WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *logrus.Logger) error {
	shutdownTracing, err := qrotel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Postgres with SQLite fallback
	sel, err := database.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sel.DB.Close()
	if err := migration.EnsureMigrated(ctx, sel.DB, sel.Kind, log); err != nil {
		return err
	}
	meta := sqlstore.New(sel.DB, sel.Kind)

	files, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	provider := qrcode.NewSkipProvider()
	cleaner := service.NewCleanupScheduler(files, meta.Cleanup(),
		cfg.Cleanup.RetentionWindow, cfg.Cleanup.Interval, cfg.Cleanup.TriggerProbability,
		log.WithField("component", "cleanup"))
	artifacts := service.NewArtifactStore(files, meta, cfg.Cleanup.RetentionWindow, log.WithField("component", "artifacts"))
	presets := service.NewPresetService(meta.Presets(), cfg.Presets.Size, cfg.Presets.TTL)
	pipeline := batch.NewPipeline(provider, files, meta.BatchJobs(), log.WithField("component", "batch"),
		batch.WithArtifactSaver(artifacts))
	batches := service.NewBatchService(pipeline, meta.BatchJobs(), files, artifacts, cfg.QR, cfg.Batch, log.WithField("component", "batch"))
	defer batches.Close()
	generator := service.NewGenerator(provider, artifacts, presets, cleaner, cfg.QR, log.WithField("component", "generator"))

	cleaner.Start(ctx)
	defer cleaner.Stop()

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit(cfg),
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMW.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		Meta:      meta,
		Degraded:  sel.Degraded,
		Generator: generator,
		Artifacts: artifacts,
		Batches:   batches,
		Presets:   presets,
		Settings:  service.NewSettingsService(meta.Settings(), cfg.QR),
		Cleaner:   cleaner,
		Audit:     service.NewAuditLog(meta.AdminLogs(), log),
		Config:    cfg,
		Gatherer:  prometheus.DefaultGatherer,
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"component": "http",
			"event":     "listen",
			"addr":      ":" + cfg.Port,
			"backend":   sel.Kind.String(),
			"degraded":  sel.Degraded,
		}).Info("server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.WithField("component", "http").Info("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("listener exited")
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// bodyLimit fits the largest CSV upload or base64 image a request may carry.
func bodyLimit(cfg *config.AppConfig) int {
	imageLimit := service.MaxImageDataBytes*4/3 + 1<<20
	return max(int(cfg.Batch.MaxFileSizeBytes)+1<<20, imageLimit, fiber.DefaultBodyLimit)
}
