package sqlstore

import (
	"context"
	"time"

	"qrforge/internal/model"
)

type analyticsRepo struct{ s *Store }

func (r analyticsRepo) Insert(ctx context.Context, ev *model.AnalyticsEvent) error {
	q := r.s.q(`
		INSERT INTO analytics (id, qr_code_id, event_type, data_type, size, format,
			processing_time_ms, ip_address, user_agent, referrer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.s.db.ExecContext(ctx, q,
		ev.ID,
		nullString(ev.ArtifactID),
		string(ev.EventType),
		ev.DataType,
		ev.Size,
		ev.Format,
		ev.ProcessingTime.Milliseconds(),
		ev.IPAddress,
		ev.UserAgent,
		ev.Referrer,
		ev.CreatedAt.UTC(),
	)
	return err
}

func (r analyticsRepo) CountSince(ctx context.Context, since time.Time) (map[model.EventType]int64, error) {
	q := r.s.q(`SELECT event_type, COUNT(*) FROM analytics WHERE created_at >= ? GROUP BY event_type`)
	rows, err := r.s.db.QueryContext(ctx, q, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.EventType]int64)
	for rows.Next() {
		var (
			et string
			n  int64
		)
		if err := rows.Scan(&et, &n); err != nil {
			return nil, err
		}
		out[model.EventType(et)] = n
	}
	return out, rows.Err()
}
