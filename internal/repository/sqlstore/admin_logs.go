package sqlstore

import (
	"context"

	"qrforge/internal/model"
)

type adminLogRepo struct{ s *Store }

func (r adminLogRepo) Insert(ctx context.Context, entry *model.AdminLog) error {
	q := r.s.q(`
		INSERT INTO admin_logs (id, action, details, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := r.s.db.ExecContext(ctx, q,
		entry.ID,
		string(entry.Action),
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt.UTC(),
	)
	return err
}

func (r adminLogRepo) Recent(ctx context.Context, limit int) ([]model.AdminLog, error) {
	q := r.s.q(`
		SELECT id, action, details, ip_address, user_agent, created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT ?
	`)
	rows, err := r.s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AdminLog, 0, limit)
	for rows.Next() {
		var (
			e      model.AdminLog
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.Details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.AdminAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
