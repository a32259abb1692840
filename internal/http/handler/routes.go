package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"qrforge/internal/config"
	"qrforge/internal/http/middleware"
	"qrforge/internal/repository"
	"qrforge/internal/service"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Meta      repository.MetadataStore
	Degraded  bool
	Generator service.Generator
	Artifacts service.ArtifactStore
	Batches   service.BatchService
	Presets   service.PresetService
	Settings  service.SettingsService
	Cleaner   service.Cleaner
	Audit     service.AuditLog
	Config    *config.AppConfig
	Gatherer  prometheus.Gatherer
	Log       logrus.FieldLogger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	app.Get("/health", HealthCheck(d.Meta, d.Degraded))
	app.Get("/healthz", LivenessProbe())
	app.Get("/metrics", Metrics(gatherer))
	app.Get("/swagger/*", Swagger())

	app.Get("/files/:filename", ServeFile(d.Artifacts, d.Config.Storage, log))

	api := app.Group("/api")
	api.Post("/generate", GenerateQR(d.Generator, d.Config.PublicBaseURL, log))
	api.Get("/artifacts/:id", GetArtifact(d.Artifacts, log))
	api.Post("/batch", SubmitBatch(d.Batches, log))
	api.Get("/batch/:id", BatchStatus(d.Batches, log))
	api.Get("/batch/:id/archive", BatchArchive(d.Batches, log))
	api.Get("/presets", ListPresets(d.Presets, log))

	api.Get("/settings", middleware.Session(), GetSettings(d.Settings, log))
	api.Put("/settings", middleware.Session(), SaveSettings(d.Settings, log))

	admin := app.Group("/admin", AdminAuth(d.Config.Admin.Token))
	admin.Post("/cleanup", RunCleanup(d.Cleaner, d.Audit, d.Config.Cleanup.RetentionWindow, log))
	admin.Get("/artifacts", ListArtifacts(d.Artifacts, log))
	admin.Delete("/artifacts/:id", DeleteArtifact(d.Artifacts, d.Audit, log))
	admin.Get("/logs", AdminLogs(d.Audit, log))
	admin.Get("/status", AdminStatus(d.Meta, d.Degraded, d.Artifacts, log))
}
