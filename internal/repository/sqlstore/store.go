// Package sqlstore implements repository.MetadataStore on database/sql for
// both Postgres and SQLite. Queries are written with '?' placeholders and
// rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"qrforge/internal/database"
	"qrforge/internal/repository"
)

// Store is safe for concurrent use; *sql.DB does the pooling.
type Store struct {
	db   *sql.DB
	kind database.BackendKind
}

var _ repository.MetadataStore = (*Store)(nil)

// New wraps db, whose dialect is kind.
func New(db *sql.DB, kind database.BackendKind) *Store {
	return &Store{db: db, kind: kind}
}

func (s *Store) q(query string) string { return database.Rebind(s.kind, query) }

func (s *Store) Kind() database.BackendKind { return s.kind }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Artifacts() repository.ArtifactRepository  { return artifactRepo{s} }
func (s *Store) BatchJobs() repository.BatchJobRepository  { return batchJobRepo{s} }
func (s *Store) Analytics() repository.AnalyticsRepository { return analyticsRepo{s} }
func (s *Store) AdminLogs() repository.AdminLogRepository  { return adminLogRepo{s} }
func (s *Store) Presets() repository.PresetRepository      { return presetRepo{s} }
func (s *Store) Settings() repository.SettingsRepository   { return settingsRepo{s} }
func (s *Store) Cleanup() repository.CleanupRepository     { return cleanupRepo{s} }

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t *sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
