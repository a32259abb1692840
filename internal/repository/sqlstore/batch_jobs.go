package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qrforge/internal/model"
	"qrforge/internal/repository"
)

type batchJobRepo struct{ s *Store }

func (r batchJobRepo) Create(ctx context.Context, j *model.BatchJob) error {
	settings, err := json.Marshal(j.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	q := r.s.q(`
		INSERT INTO batch_jobs (id, source_filename, total_items, processed_items, failed_items,
			status, settings, archive_path, error_message, ip_address, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = r.s.db.ExecContext(ctx, q,
		j.ID,
		j.SourceFilename,
		j.TotalItems,
		j.ProcessedItems,
		j.FailedItems,
		j.Status.String(),
		string(settings),
		j.ArchivePath,
		j.ErrorMessage,
		j.IPAddress,
		j.CreatedAt.UTC(),
		utcPtr(j.StartedAt),
		utcPtr(j.CompletedAt),
	)
	return err
}

func (r batchJobRepo) Update(ctx context.Context, j *model.BatchJob) error {
	q := r.s.q(`
		UPDATE batch_jobs
		SET processed_items = ?, failed_items = ?, status = ?, archive_path = ?,
			error_message = ?, started_at = ?, completed_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'failed')
	`)
	res, err := r.s.db.ExecContext(ctx, q,
		j.ProcessedItems,
		j.FailedItems,
		j.Status.String(),
		j.ArchivePath,
		j.ErrorMessage,
		utcPtr(j.StartedAt),
		utcPtr(j.CompletedAt),
		j.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: batch job %s missing or already terminal", repository.ErrNotFound, j.ID)
	}
	return nil
}

func (r batchJobRepo) FindByID(ctx context.Context, id string) (*model.BatchJob, error) {
	q := r.s.q(`
		SELECT id, source_filename, total_items, processed_items, failed_items, status, settings,
			archive_path, error_message, ip_address, created_at, started_at, completed_at
		FROM batch_jobs
		WHERE id = ?
	`)
	var (
		j                  model.BatchJob
		status, settings   string
		started, completed sql.NullTime
	)
	err := r.s.db.QueryRowContext(ctx, q, id).Scan(
		&j.ID,
		&j.SourceFilename,
		&j.TotalItems,
		&j.ProcessedItems,
		&j.FailedItems,
		&status,
		&settings,
		&j.ArchivePath,
		&j.ErrorMessage,
		&j.IPAddress,
		&j.CreatedAt,
		&started,
		&completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	j.Status = model.BatchStatus(status)
	if !j.Status.IsValid() {
		return nil, fmt.Errorf("batch job %s has unknown status %q", id, status)
	}
	if settings != "" {
		if err := json.Unmarshal([]byte(settings), &j.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for %s: %w", id, err)
		}
	}
	j.StartedAt = nullTime(&started)
	j.CompletedAt = nullTime(&completed)
	return &j, nil
}

func (r batchJobRepo) Stats(ctx context.Context, since time.Time) ([]model.BatchJobStat, error) {
	q := r.s.q(`
		SELECT status, COUNT(*), COALESCE(SUM(total_items), 0),
			COALESCE(SUM(processed_items), 0), COALESCE(SUM(failed_items), 0)
		FROM batch_jobs
		WHERE created_at >= ?
		GROUP BY status
		ORDER BY status
	`)
	rows, err := r.s.db.QueryContext(ctx, q, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BatchJobStat
	for rows.Next() {
		var (
			st     model.BatchJobStat
			status string
		)
		if err := rows.Scan(&status, &st.Jobs, &st.Items, &st.Completed, &st.Failed); err != nil {
			return nil, err
		}
		st.Status = model.BatchStatus(status)
		out = append(out, st)
	}
	return out, rows.Err()
}
