package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrforge/internal/batch"
	"qrforge/internal/config"
	"qrforge/internal/database"
	"qrforge/internal/database/migration"
	"qrforge/internal/http/middleware"
	"qrforge/internal/qrcode"
	"qrforge/internal/repository/sqlstore"
	"qrforge/internal/service"
	"qrforge/internal/storage"
)

// newStack wires the real services over SQLite and a temp directory.
func newStack(t *testing.T) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewSQLite(filepath.Join(dir, "qrforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.EnsureMigrated(context.Background(), db, database.SQLite, discard))

	files, err := storage.NewLocal(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	meta := sqlstore.New(db, database.SQLite)

	cfg := &config.AppConfig{
		PublicBaseURL: "http://qr.test",
		QR: config.QRConfig{
			DefaultSize: 200, MinSize: 100, MaxSize: 1000,
			DefaultFormat: "png", DefaultECC: "M",
			DefaultFG: "#000000", DefaultBG: "#ffffff",
			QuietZone: 4, LogoSizePercent: 20, LogoOpacity: 1,
		},
		Batch:   config.BatchConfig{MaxItems: 100, MaxFileSizeBytes: 1 << 20, RunTimeout: time.Minute},
		Cleanup: config.CleanupConfig{RetentionWindow: 720 * time.Hour},
		Admin:   config.AdminConfig{Token: "s3cret"},
	}

	provider := qrcode.NewSkipProvider()
	cleaner := service.NewCleanupScheduler(files, meta.Cleanup(), cfg.Cleanup.RetentionWindow, 0, 0, discard)
	artifacts := service.NewArtifactStore(files, meta, cfg.Cleanup.RetentionWindow, discard)
	presets := service.NewPresetService(meta.Presets(), 8, time.Minute)
	pipeline := batch.NewPipeline(provider, files, meta.BatchJobs(), discard, batch.WithYield(0))
	batches := service.NewBatchService(pipeline, meta.BatchJobs(), files, artifacts, cfg.QR, cfg.Batch, discard)
	t.Cleanup(batches.Close)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	RegisterRoutes(app, Deps{
		Meta:      meta,
		Generator: service.NewGenerator(provider, artifacts, presets, cleaner, cfg.QR, discard),
		Artifacts: artifacts,
		Batches:   batches,
		Presets:   presets,
		Settings:  service.NewSettingsService(meta.Settings(), cfg.QR),
		Cleaner:   cleaner,
		Audit:     service.NewAuditLog(meta.AdminLogs(), discard),
		Config:    cfg,
		Gatherer:  prometheus.NewRegistry(),
		Log:       discard,
	})
	return app
}

func TestEndToEnd_GenerateAndFetch(t *testing.T) {
	app := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate",
		strings.NewReader(`{"type":"url","data":"https://example.com","size":200,"format":"png"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	gen := decode[generateResponse](t, resp.Body)
	assert.True(t, gen.Success)
	assert.True(t, strings.HasSuffix(gen.Filename, ".png"))
	assert.Equal(t, "https://example.com", gen.Data)
	assert.Equal(t, "url", gen.Type)
	assert.Equal(t, "http://qr.test/files/"+gen.Filename, gen.URL)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/files/"+gen.Filename, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/artifacts/"+gen.ID, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	art := decode[map[string]any](t, resp.Body)
	assert.Equal(t, float64(1), art["access_count"])
}

func TestEndToEnd_EmptyPayload(t *testing.T) {
	app := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"type":"phone","data":{}}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorPayload](t, resp.Body)
	assert.False(t, body.Success)
	assert.Equal(t, CodeEmptyPayload, body.Error)
}

func TestEndToEnd_SyncBatch(t *testing.T) {
	app := newStack(t)

	body, ct := multipartCSV(t, "data,label\nhttps://a.example,alpha\n,orphan\nhttps://b.example,beta\n",
		map[string]string{"sync": "true", "naming": "label"})
	req := httptest.NewRequest(http.MethodPost, "/api/batch", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req, 10_000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[batchCompleted](t, resp.Body)
	require.NotNil(t, res.Result)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, 1, res.Failed)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/batch/"+res.JobID+"/archive", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"alpha.png", "beta.png", "manifest.csv"}, names)
}

func TestEndToEnd_AdminAuditLog(t *testing.T) {
	app := newStack(t)

	admin := func(method, target string) *http.Response {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := admin(http.MethodPost, "/admin/cleanup?window=1h")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = admin(http.MethodGet, "/admin/logs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Logs []struct {
			Action  string `json:"action"`
			Details string `json:"details"`
		} `json:"logs"`
	}](t, resp.Body)
	require.Len(t, body.Logs, 1)
	assert.Equal(t, "cleanup", body.Logs[0].Action)
	assert.Contains(t, body.Logs[0].Details, "window=1h0m0s")

	resp = admin(http.MethodGet, "/admin/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[map[string]any](t, resp.Body)
	assert.Contains(t, status["stats"].(map[string]any), "batches")
}
