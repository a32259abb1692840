package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"qrforge/internal/model"
)

type presetRepo struct{ s *Store }

// List returns presets with the default first.
func (r presetRepo) List(ctx context.Context) ([]model.StylePreset, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT id, name, description, settings, is_default, created_at
		FROM style_presets
		ORDER BY is_default DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presets := make([]model.StylePreset, 0)
	for rows.Next() {
		var (
			p        model.StylePreset
			id       int64
			settings string
		)
		if err := rows.Scan(&id, &p.Name, &p.Description, &settings, &p.IsDefault, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(settings), &p.Settings); err != nil {
			return nil, fmt.Errorf("decode preset %s: %w", p.Name, err)
		}
		p.ID = strconv.FormatInt(id, 10)
		presets = append(presets, p)
	}
	return presets, rows.Err()
}
