package sqlstore

import (
	"context"
	"fmt"
	"time"

	"qrforge/internal/repository"
)

type cleanupRepo struct{ s *Store }

func (r cleanupRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (repository.DeleteCounts, error) {
	var counts repository.DeleteCounts

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	cutoff = cutoff.UTC()
	targets := []struct {
		table string
		n     *int64
	}{
		{"analytics", &counts.Analytics},
		{"qr_codes", &counts.Artifacts},
		{"batch_jobs", &counts.BatchJobs},
	}
	for _, t := range targets {
		res, err := tx.ExecContext(ctx, r.s.q(`DELETE FROM `+t.table+` WHERE created_at < ?`), cutoff)
		if err != nil {
			return repository.DeleteCounts{}, fmt.Errorf("delete from %s: %w", t.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return repository.DeleteCounts{}, fmt.Errorf("delete from %s: %w", t.table, err)
		}
		*t.n = n
	}

	if err := tx.Commit(); err != nil {
		return repository.DeleteCounts{}, fmt.Errorf("commit cleanup: %w", err)
	}
	return counts, nil
}
