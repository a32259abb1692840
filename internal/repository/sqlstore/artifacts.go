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

type artifactRepo struct{ s *Store }

const artifactColumns = `id, filename, storage_path, data_type, original_data, payload, size, file_size,
		fg_color, bg_color, format, ecc_level, template, dot_style, corner_style, has_logo,
		created_at, expires_at, access_count, ip_address, user_agent`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*model.Artifact, error) {
	var (
		a        model.Artifact
		original string
	)
	if err := row.Scan(
		&a.ID,
		&a.Filename,
		&a.StoragePath,
		&a.DataType,
		&original,
		&a.Payload,
		&a.Size,
		&a.FileSize,
		&a.Foreground,
		&a.Background,
		&a.Format,
		&a.ECC,
		&a.Template,
		&a.DotStyle,
		&a.CornerStyle,
		&a.HasLogo,
		&a.CreatedAt,
		&a.ExpiresAt,
		&a.AccessCount,
		&a.IPAddress,
		&a.UserAgent,
	); err != nil {
		return nil, err
	}
	if original != "" {
		if err := json.Unmarshal([]byte(original), &a.OriginalData); err != nil {
			return nil, fmt.Errorf("decode original_data for %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func (r artifactRepo) Create(ctx context.Context, a *model.Artifact) error {
	original := []byte("{}")
	if len(a.OriginalData) > 0 {
		b, err := json.Marshal(a.OriginalData)
		if err != nil {
			return fmt.Errorf("encode original_data: %w", err)
		}
		original = b
	}

	q := r.s.q(`
		INSERT INTO qr_codes (` + artifactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.s.db.ExecContext(ctx, q,
		a.ID,
		a.Filename,
		a.StoragePath,
		a.DataType,
		string(original),
		a.Payload,
		a.Size,
		a.FileSize,
		a.Foreground,
		a.Background,
		a.Format,
		a.ECC,
		a.Template,
		a.DotStyle,
		a.CornerStyle,
		a.HasLogo,
		a.CreatedAt.UTC(),
		a.ExpiresAt.UTC(),
		a.AccessCount,
		a.IPAddress,
		a.UserAgent,
	)
	return err
}

func (r artifactRepo) find(ctx context.Context, column, value string, now *time.Time) (*model.Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM qr_codes
		WHERE ` + column + ` = ?`
	args := []any{value}
	if now != nil {
		query += ` AND expires_at > ?`
		args = append(args, now.UTC())
	}
	a, err := scanArtifact(r.s.db.QueryRowContext(ctx, r.s.q(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return a, err
}

func (r artifactRepo) FindByID(ctx context.Context, id string) (*model.Artifact, error) {
	return r.find(ctx, "id", id, nil)
}

func (r artifactRepo) FindActiveByID(ctx context.Context, id string, now time.Time) (*model.Artifact, error) {
	return r.find(ctx, "id", id, &now)
}

func (r artifactRepo) FindActiveByFilename(ctx context.Context, filename string, now time.Time) (*model.Artifact, error) {
	return r.find(ctx, "filename", filename, &now)
}

func (r artifactRepo) IncrementAccessCount(ctx context.Context, id string) error {
	q := r.s.q(`UPDATE qr_codes SET access_count = access_count + 1 WHERE id = ?`)
	res, err := r.s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns artifacts using LIMIT/OFFSET pagination and a total count.
func (r artifactRepo) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Artifact], error) {
	var total int
	if err := r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qr_codes`).Scan(&total); err != nil {
		return nil, err
	}

	q := r.s.q(`
		SELECT ` + artifactColumns + `
		FROM qr_codes
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)
	rows, err := r.s.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Artifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Artifact]{Items: items, Total: total}, nil
}

func (r artifactRepo) Delete(ctx context.Context, id string) error {
	_, err := r.s.db.ExecContext(ctx, r.s.q(`DELETE FROM qr_codes WHERE id = ?`), id)
	return err
}

func (r artifactRepo) Stats(ctx context.Context, since time.Time) ([]model.ArtifactStat, error) {
	q := r.s.q(`
		SELECT data_type, format, COUNT(*), COALESCE(SUM(access_count), 0)
		FROM qr_codes
		WHERE created_at >= ?
		GROUP BY data_type, format
		ORDER BY COUNT(*) DESC, data_type, format
	`)
	rows, err := r.s.db.QueryContext(ctx, q, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]model.ArtifactStat, 0)
	for rows.Next() {
		var st model.ArtifactStat
		if err := rows.Scan(&st.DataType, &st.Format, &st.Generated, &st.TotalAccessed); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
