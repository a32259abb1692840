package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrforge/internal/database"
	"qrforge/internal/database/migration"
	"qrforge/internal/logging"
	"qrforge/internal/model"
	"qrforge/internal/repository"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, database.Postgres), mock
}

func newSQLite(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "qrforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.EnsureMigrated(context.Background(), db, database.SQLite, logging.Discard()))
	return New(db, database.SQLite)
}

func sampleArtifact(id string, created time.Time, ttl time.Duration) *model.Artifact {
	return &model.Artifact{
		ID:           id,
		Filename:     "qr_" + id + ".png",
		StoragePath:  "codes/qr_" + id + ".png",
		DataType:     "url",
		OriginalData: map[string]string{"url": "https://example.com"},
		Payload:      "https://example.com",
		Size:         200,
		FileSize:     512,
		Foreground:   "#000000",
		Background:   "#ffffff",
		Format:       "png",
		ECC:          "M",
		DotStyle:     "square",
		CornerStyle:  "square",
		CreatedAt:    created,
		ExpiresAt:    created.Add(ttl),
	}
}

func TestArtifacts_FindActiveByID_Postgres(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		a := sampleArtifact("a1", now.Add(-time.Hour), 24*time.Hour)
		rows := sqlmock.NewRows([]string{"id", "filename", "storage_path", "data_type", "original_data", "payload", "size", "file_size",
			"fg_color", "bg_color", "format", "ecc_level", "template", "dot_style", "corner_style", "has_logo",
			"created_at", "expires_at", "access_count", "ip_address", "user_agent"}).
			AddRow(a.ID, a.Filename, a.StoragePath, a.DataType, `{"url":"https://example.com"}`, a.Payload, a.Size, a.FileSize,
				a.Foreground, a.Background, a.Format, a.ECC, "", a.DotStyle, a.CornerStyle, false,
				a.CreatedAt, a.ExpiresAt, 3, "", "")
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND expires_at > $2")).
			WithArgs("a1", now).
			WillReturnRows(rows)

		got, err := store.Artifacts().FindActiveByID(ctx, "a1", now)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.OriginalData["url"])
		assert.Equal(t, int64(3), got.AccessCount)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM qr_codes").WithArgs("gone", now).WillReturnError(sql.ErrNoRows)

		_, err := store.Artifacts().FindActiveByID(ctx, "gone", now)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArtifacts_IncrementAccessCount(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE qr_codes SET access_count = access_count + 1 WHERE id = $1")).
		WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Artifacts().IncrementAccessCount(ctx, "a1"))

	mock.ExpectExec("UPDATE qr_codes").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.Artifacts().IncrementAccessCount(ctx, "nope"), repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanup_DeleteCreatedBefore_Transactional(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("commit", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM analytics WHERE created_at < $1")).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 7))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM qr_codes WHERE created_at < $1")).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_jobs WHERE created_at < $1")).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		counts, err := store.Cleanup().DeleteCreatedBefore(context.Background(), cutoff)
		require.NoError(t, err)
		assert.Equal(t, repository.DeleteCounts{Artifacts: 3, BatchJobs: 1, Analytics: 7}, counts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on failure", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM analytics").WillReturnResult(sqlmock.NewResult(0, 7))
		mock.ExpectExec("DELETE FROM qr_codes").WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		counts, err := store.Cleanup().DeleteCreatedBefore(context.Background(), cutoff)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete from qr_codes: lock timeout")
		assert.Equal(t, repository.DeleteCounts{}, counts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBatchJobs_UpdateRefusesTerminal(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	job := model.NewBatchJob("j1", "codes.csv", 2, model.BatchSettings{Size: 200}, now)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $8 AND status NOT IN ('completed', 'failed')")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.BatchJobs().Update(context.Background(), job)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_ArtifactLifecycle(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	live := sampleArtifact("live", now.Add(-time.Hour), 24*time.Hour)
	expired := sampleArtifact("expired", now.Add(-48*time.Hour), 24*time.Hour)
	require.NoError(t, store.Artifacts().Create(ctx, live))
	require.NoError(t, store.Artifacts().Create(ctx, expired))

	got, err := store.Artifacts().FindActiveByFilename(ctx, live.Filename, now)
	require.NoError(t, err)
	assert.Equal(t, "live", got.ID)
	assert.Equal(t, "https://example.com", got.Payload)
	assert.True(t, got.ExpiresAt.Equal(live.ExpiresAt))

	_, err = store.Artifacts().FindActiveByID(ctx, "expired", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err = store.Artifacts().FindByID(ctx, "expired")
	require.NoError(t, err)
	assert.Equal(t, "expired", got.ID)

	require.NoError(t, store.Artifacts().IncrementAccessCount(ctx, "live"))
	require.NoError(t, store.Artifacts().IncrementAccessCount(ctx, "live"))
	got, err = store.Artifacts().FindActiveByID(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.AccessCount)

	page, err := store.Artifacts().List(ctx, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "live", page.Items[0].ID)

	stats, err := store.Artifacts().Stats(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Generated)
	assert.Equal(t, int64(2), stats[0].TotalAccessed)
}

func TestSQLite_CleanupAndAnalytics(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)

	require.NoError(t, store.Artifacts().Create(ctx, sampleArtifact("old", old, 30*24*time.Hour)))
	require.NoError(t, store.Artifacts().Create(ctx, sampleArtifact("new", now, 30*24*time.Hour)))
	require.NoError(t, store.Analytics().Insert(ctx, &model.AnalyticsEvent{ID: "e1", ArtifactID: "old", EventType: model.EventGenerate, CreatedAt: old}))
	require.NoError(t, store.Analytics().Insert(ctx, &model.AnalyticsEvent{ID: "e2", EventType: model.EventBatch, ProcessingTime: 40 * time.Millisecond, CreatedAt: now}))
	require.NoError(t, store.BatchJobs().Create(ctx, model.NewBatchJob("j-old", "a.csv", 1, model.BatchSettings{}, old)))

	counts, err := store.Cleanup().DeleteCreatedBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, repository.DeleteCounts{Artifacts: 1, BatchJobs: 1, Analytics: 1}, counts)

	events, err := store.Analytics().CountSince(ctx, old)
	require.NoError(t, err)
	assert.Equal(t, map[model.EventType]int64{model.EventBatch: 1}, events)

	again, err := store.Cleanup().DeleteCreatedBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, repository.DeleteCounts{}, again)
}

func TestSQLite_BatchJobRoundTrip(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := model.NewBatchJob("j1", "codes.csv", 2, model.BatchSettings{Size: 300, Format: "svg", NamingPattern: "label"}, now)
	require.NoError(t, store.BatchJobs().Create(ctx, job))

	require.NoError(t, job.Transition(model.BatchProcessing, now))
	require.NoError(t, job.RecordItem(true))
	require.NoError(t, job.RecordItem(false))
	require.NoError(t, job.Transition(model.BatchCompleted, now))
	job.ArchivePath = "batch/j1.zip"
	require.NoError(t, store.BatchJobs().Update(ctx, job))

	got, err := store.BatchJobs().FindByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, got.Status)
	assert.Equal(t, 1, got.ProcessedItems)
	assert.Equal(t, 1, got.FailedItems)
	assert.Equal(t, "svg", got.Settings.Format)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	// terminal rows are frozen
	assert.ErrorIs(t, store.BatchJobs().Update(ctx, job), repository.ErrNotFound)

	_, err = store.BatchJobs().FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSQLite_PresetsAndSettings(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	presets, err := store.Presets().List(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 4)
	assert.Equal(t, "Classic", presets[0].Name)
	assert.True(t, presets[0].IsDefault)
	assert.Equal(t, "#7c9885", presets[1].Settings.Foreground)

	_, err = store.Settings().Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	us := &model.UserSettings{SessionID: "s1", DefaultSize: 300, DefaultFormat: "svg", DefaultECC: "H", DefaultFG: "#111111", DefaultBG: "#eeeeee", UpdatedAt: time.Now()}
	require.NoError(t, store.Settings().Upsert(ctx, us))
	us.DefaultSize = 400
	require.NoError(t, store.Settings().Upsert(ctx, us))

	got, err := store.Settings().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 400, got.DefaultSize)
	assert.Equal(t, "H", got.DefaultECC)

	assert.Equal(t, database.SQLite, store.Kind())
	assert.NoError(t, store.Ping(ctx))
}

func TestSQLite_AdminLogs(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, action := range []model.AdminAction{model.AdminCleanup, model.AdminDeleteArtifact, model.AdminCleanup} {
		require.NoError(t, store.AdminLogs().Insert(ctx, &model.AdminLog{
			ID:        "l" + string(rune('1'+i)),
			Action:    action,
			Details:   "entry",
			IPAddress: "10.0.0.1",
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.AdminLogs().Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "l3", got[0].ID)
	assert.Equal(t, "l2", got[1].ID)
	assert.Equal(t, model.AdminDeleteArtifact, got[1].Action)
	assert.Equal(t, "10.0.0.1", got[1].IPAddress)
}

func TestAdminLogs_RecentQuery(t *testing.T) {
	store, mock := newMock(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_logs")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "details", "ip_address", "user_agent", "created_at"}).
			AddRow("l1", "cleanup", "files=3", "127.0.0.1", "curl/8", created))

	got, err := store.AdminLogs().Recent(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AdminCleanup, got[0].Action)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_BatchJobStats(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	done := model.NewBatchJob("j-done", "a.csv", 3, model.BatchSettings{}, now)
	require.NoError(t, store.BatchJobs().Create(ctx, done))
	require.NoError(t, done.Transition(model.BatchProcessing, now))
	require.NoError(t, done.RecordItem(true))
	require.NoError(t, done.RecordItem(true))
	require.NoError(t, done.RecordItem(false))
	require.NoError(t, done.Transition(model.BatchCompleted, now))
	require.NoError(t, store.BatchJobs().Update(ctx, done))

	require.NoError(t, store.BatchJobs().Create(ctx, model.NewBatchJob("j-pending", "b.csv", 4, model.BatchSettings{}, now)))
	require.NoError(t, store.BatchJobs().Create(ctx, model.NewBatchJob("j-old", "c.csv", 9, model.BatchSettings{}, now.Add(-72*time.Hour))))

	stats, err := store.BatchJobs().Stats(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []model.BatchJobStat{
		{Status: model.BatchCompleted, Jobs: 1, Items: 3, Completed: 2, Failed: 1},
		{Status: model.BatchPending, Jobs: 1, Items: 4},
	}, stats)
}
