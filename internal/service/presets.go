package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"qrforge/internal/model"
	"qrforge/internal/repository"
)

const presetsKey = "all"

// PresetService serves style presets from an expiring in-memory cache.
type PresetService interface {
	List(ctx context.Context) ([]model.StylePreset, error)
	// ByName matches case-insensitively.
	ByName(ctx context.Context, name string) (*model.StylePreset, error)
	Default(ctx context.Context) (*model.StylePreset, error)
}

type presetService struct {
	repo  repository.PresetRepository
	cache *expirable.LRU[string, []model.StylePreset]
}

func NewPresetService(repo repository.PresetRepository, size int, ttl time.Duration) PresetService {
	if size <= 0 {
		size = 1
	}
	return &presetService{
		repo:  repo,
		cache: expirable.NewLRU[string, []model.StylePreset](size, nil, ttl),
	}
}

func (s *presetService) List(ctx context.Context) ([]model.StylePreset, error) {
	if v, ok := s.cache.Get(presetsKey); ok {
		presetCacheHits.Inc()
		return v, nil
	}
	presetCacheMisses.Inc()

	presets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	s.cache.Add(presetsKey, presets)
	return presets, nil
}

func (s *presetService) ByName(ctx context.Context, name string) (*model.StylePreset, error) {
	presets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range presets {
		if strings.EqualFold(presets[i].Name, name) {
			p := presets[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: preset %q", ErrNotFound, name)
}

func (s *presetService) Default(ctx context.Context) (*model.StylePreset, error) {
	presets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range presets {
		if presets[i].IsDefault {
			p := presets[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: no default preset", ErrNotFound)
}
