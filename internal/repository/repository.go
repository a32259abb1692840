// Package repository contains the metadata data access layer. The
// interfaces here are persistence-only; implementations live in
// subpackages (sqlstore serves both SQL backends).
package repository

import (
	"context"
	"errors"
	"time"

	"qrforge/internal/database"
	"qrforge/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ArtifactRepository persists qr_codes rows.
type ArtifactRepository interface {
	// Create inserts a new artifact. ID, CreatedAt and ExpiresAt are set by the caller.
	Create(ctx context.Context, a *model.Artifact) error
	// FindByID returns the artifact regardless of expiry.
	FindByID(ctx context.Context, id string) (*model.Artifact, error)
	// FindActiveByID returns the artifact only if it expires after now.
	FindActiveByID(ctx context.Context, id string, now time.Time) (*model.Artifact, error)
	// FindActiveByFilename returns the artifact only if it expires after now.
	FindActiveByFilename(ctx context.Context, filename string, now time.Time) (*model.Artifact, error)
	// IncrementAccessCount bumps access_count in a single statement.
	IncrementAccessCount(ctx context.Context, id string) error
	// List returns artifacts newest first, expired ones included.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Artifact], error)
	// Delete removes an artifact row. Missing rows are not an error.
	Delete(ctx context.Context, id string) error
	// Stats groups artifacts created at or after since by type and format.
	Stats(ctx context.Context, since time.Time) ([]model.ArtifactStat, error)
}

// BatchJobRepository persists batch_jobs rows. Only the batch pipeline
// mutates a job; the repository just stores snapshots.
type BatchJobRepository interface {
	Create(ctx context.Context, j *model.BatchJob) error
	// Update writes counters, status, archive path and timestamps. Rows
	// already in a terminal status are not overwritten.
	Update(ctx context.Context, j *model.BatchJob) error
	FindByID(ctx context.Context, id string) (*model.BatchJob, error)
	// Stats groups jobs created at or after since by status.
	Stats(ctx context.Context, since time.Time) ([]model.BatchJobStat, error)
}

// AnalyticsRepository appends analytics events.
type AnalyticsRepository interface {
	Insert(ctx context.Context, ev *model.AnalyticsEvent) error
	CountSince(ctx context.Context, since time.Time) (map[model.EventType]int64, error)
}

// AdminLogRepository appends and reads the operator audit log.
type AdminLogRepository interface {
	Insert(ctx context.Context, entry *model.AdminLog) error
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.AdminLog, error)
}

// PresetRepository reads style presets.
type PresetRepository interface {
	List(ctx context.Context) ([]model.StylePreset, error)
}

// SettingsRepository stores per-session defaults.
type SettingsRepository interface {
	Get(ctx context.Context, sessionID string) (*model.UserSettings, error)
	Upsert(ctx context.Context, s *model.UserSettings) error
}

// DeleteCounts is the number of rows removed per table by a cleanup.
type DeleteCounts struct {
	Artifacts int64
	BatchJobs int64
	Analytics int64
}

// CleanupRepository removes aged metadata.
type CleanupRepository interface {
	// DeleteCreatedBefore deletes analytics, qr_codes and batch_jobs rows
	// created before cutoff in one transaction. On error nothing is deleted.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (DeleteCounts, error)
}

// MetadataStore is the relational store handed to services at startup.
type MetadataStore interface {
	Artifacts() ArtifactRepository
	BatchJobs() BatchJobRepository
	Analytics() AnalyticsRepository
	AdminLogs() AdminLogRepository
	Presets() PresetRepository
	Settings() SettingsRepository
	Cleanup() CleanupRepository
	Kind() database.BackendKind
	Ping(ctx context.Context) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
