package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"qrforge/internal/model"
	"qrforge/internal/repository"
)

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(ctx context.Context, sessionID string) (*model.UserSettings, error) {
	q := r.s.q(`
		SELECT session_id, default_size, default_format, default_ecc, default_fg, default_bg, template, updated_at
		FROM user_settings
		WHERE session_id = ?
	`)
	var us model.UserSettings
	err := r.s.db.QueryRowContext(ctx, q, sessionID).Scan(
		&us.SessionID,
		&us.DefaultSize,
		&us.DefaultFormat,
		&us.DefaultECC,
		&us.DefaultFG,
		&us.DefaultBG,
		&us.Template,
		&us.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// Upsert relies on ON CONFLICT, which both dialects support.
func (r settingsRepo) Upsert(ctx context.Context, us *model.UserSettings) error {
	q := r.s.q(`
		INSERT INTO user_settings (session_id, default_size, default_format, default_ecc, default_fg, default_bg, template, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			default_size = excluded.default_size,
			default_format = excluded.default_format,
			default_ecc = excluded.default_ecc,
			default_fg = excluded.default_fg,
			default_bg = excluded.default_bg,
			template = excluded.template,
			updated_at = excluded.updated_at
	`)
	_, err := r.s.db.ExecContext(ctx, q,
		us.SessionID,
		us.DefaultSize,
		us.DefaultFormat,
		us.DefaultECC,
		us.DefaultFG,
		us.DefaultBG,
		us.Template,
		us.UpdatedAt.UTC(),
	)
	return err
}
