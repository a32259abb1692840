package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrforge/internal/config"
	"qrforge/internal/model"
	"qrforge/internal/qrcode"
	"qrforge/internal/render"
	"qrforge/internal/repository"
)

// SettingsService stores per-session generation defaults.
type SettingsService interface {
	// Get returns the stored settings, or the configured defaults when the
	// session has none.
	Get(ctx context.Context, sessionID string) (*model.UserSettings, error)
	Save(ctx context.Context, us *model.UserSettings) (*model.UserSettings, error)
}

type settingsService struct {
	repo repository.SettingsRepository
	qr   config.QRConfig
	now  func() time.Time
}

func NewSettingsService(repo repository.SettingsRepository, qr config.QRConfig) SettingsService {
	return &settingsService{repo: repo, qr: qr, now: func() time.Time { return time.Now().UTC() }}
}

func (s *settingsService) defaults(sessionID string) *model.UserSettings {
	return &model.UserSettings{
		SessionID:     sessionID,
		DefaultSize:   s.qr.DefaultSize,
		DefaultFormat: s.qr.DefaultFormat,
		DefaultECC:    s.qr.DefaultECC,
		DefaultFG:     s.qr.DefaultFG,
		DefaultBG:     s.qr.DefaultBG,
	}
}

func (s *settingsService) Get(ctx context.Context, sessionID string) (*model.UserSettings, error) {
	if sessionID == "" {
		return nil, ErrIDRequired
	}
	us, err := s.repo.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaults(sessionID), nil
	}
	return us, err
}

func (s *settingsService) Save(ctx context.Context, us *model.UserSettings) (*model.UserSettings, error) {
	if us == nil || us.SessionID == "" {
		return nil, ErrIDRequired
	}
	d := s.defaults(us.SessionID)
	if us.DefaultSize == 0 {
		us.DefaultSize = d.DefaultSize
	}
	if us.DefaultSize < s.qr.MinSize || us.DefaultSize > s.qr.MaxSize {
		return nil, fmt.Errorf("%w: size must be between %d and %d", ErrInvalidInput, s.qr.MinSize, s.qr.MaxSize)
	}
	f, err := render.ParseFormat(firstNonEmpty(us.DefaultFormat, d.DefaultFormat))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	us.DefaultFormat = string(f)
	lvl, err := qrcode.ParseLevel(firstNonEmpty(us.DefaultECC, d.DefaultECC))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	us.DefaultECC = string(lvl)
	for _, c := range []*string{&us.DefaultFG, &us.DefaultBG} {
		if *c == "" {
			continue
		}
		rgba, err := render.ParseColor(*c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		*c = render.Hex(rgba)
	}
	us.DefaultFG = firstNonEmpty(us.DefaultFG, d.DefaultFG)
	us.DefaultBG = firstNonEmpty(us.DefaultBG, d.DefaultBG)
	us.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, us); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return us, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
