package mocks

import (
	"context"
	"time"

	"qrforge/internal/database"
	"qrforge/internal/model"
	"qrforge/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockMetadataStore hands out the embedded repository mocks.
type MockMetadataStore struct {
	ArtifactRepo  *MockArtifactRepository
	BatchJobRepo  *MockBatchJobRepository
	AnalyticsRepo *MockAnalyticsRepository
	AdminLogRepo  *MockAdminLogRepository
	PresetRepo    *MockPresetRepository
	SettingsRepo  *MockSettingsRepository
	CleanupRepo   *MockCleanupRepository
	BackendKind   database.BackendKind
	PingErr       error
}

// NewMockMetadataStore returns a store whose repositories are all fresh mocks.
func NewMockMetadataStore() *MockMetadataStore {
	return &MockMetadataStore{
		ArtifactRepo:  new(MockArtifactRepository),
		BatchJobRepo:  new(MockBatchJobRepository),
		AnalyticsRepo: new(MockAnalyticsRepository),
		AdminLogRepo:  new(MockAdminLogRepository),
		PresetRepo:    new(MockPresetRepository),
		SettingsRepo:  new(MockSettingsRepository),
		CleanupRepo:   new(MockCleanupRepository),
		BackendKind:   database.Postgres,
	}
}

func (m *MockMetadataStore) Artifacts() repository.ArtifactRepository  { return m.ArtifactRepo }
func (m *MockMetadataStore) BatchJobs() repository.BatchJobRepository  { return m.BatchJobRepo }
func (m *MockMetadataStore) Analytics() repository.AnalyticsRepository { return m.AnalyticsRepo }
func (m *MockMetadataStore) AdminLogs() repository.AdminLogRepository  { return m.AdminLogRepo }
func (m *MockMetadataStore) Presets() repository.PresetRepository      { return m.PresetRepo }
func (m *MockMetadataStore) Settings() repository.SettingsRepository   { return m.SettingsRepo }
func (m *MockMetadataStore) Cleanup() repository.CleanupRepository     { return m.CleanupRepo }
func (m *MockMetadataStore) Kind() database.BackendKind                { return m.BackendKind }
func (m *MockMetadataStore) Ping(context.Context) error                { return m.PingErr }

type MockArtifactRepository struct {
	mock.Mock
}

func (m *MockArtifactRepository) Create(ctx context.Context, a *model.Artifact) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockArtifactRepository) FindByID(ctx context.Context, id string) (*model.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) FindActiveByID(ctx context.Context, id string, now time.Time) (*model.Artifact, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) FindActiveByFilename(ctx context.Context, filename string, now time.Time) (*model.Artifact, error) {
	args := m.Called(ctx, filename, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) IncrementAccessCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArtifactRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Artifact], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Artifact]), args.Error(1)
}

func (m *MockArtifactRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArtifactRepository) Stats(ctx context.Context, since time.Time) ([]model.ArtifactStat, error) {
	args := m.Called(ctx, since)
	stats, _ := args.Get(0).([]model.ArtifactStat)
	return stats, args.Error(1)
}

type MockBatchJobRepository struct {
	mock.Mock
}

func (m *MockBatchJobRepository) Create(ctx context.Context, j *model.BatchJob) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockBatchJobRepository) Update(ctx context.Context, j *model.BatchJob) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockBatchJobRepository) FindByID(ctx context.Context, id string) (*model.BatchJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchJob), args.Error(1)
}

func (m *MockBatchJobRepository) Stats(ctx context.Context, since time.Time) ([]model.BatchJobStat, error) {
	args := m.Called(ctx, since)
	stats, _ := args.Get(0).([]model.BatchJobStat)
	return stats, args.Error(1)
}

type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) Insert(ctx context.Context, ev *model.AnalyticsEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) CountSince(ctx context.Context, since time.Time) (map[model.EventType]int64, error) {
	args := m.Called(ctx, since)
	counts, _ := args.Get(0).(map[model.EventType]int64)
	return counts, args.Error(1)
}

type MockAdminLogRepository struct {
	mock.Mock
}

func (m *MockAdminLogRepository) Insert(ctx context.Context, entry *model.AdminLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAdminLogRepository) Recent(ctx context.Context, limit int) ([]model.AdminLog, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]model.AdminLog)
	return entries, args.Error(1)
}

type MockPresetRepository struct {
	mock.Mock
}

func (m *MockPresetRepository) List(ctx context.Context) ([]model.StylePreset, error) {
	args := m.Called(ctx)
	presets, _ := args.Get(0).([]model.StylePreset)
	return presets, args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, sessionID string) (*model.UserSettings, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, s *model.UserSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockCleanupRepository struct {
	mock.Mock
}

func (m *MockCleanupRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (repository.DeleteCounts, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(repository.DeleteCounts), args.Error(1)
}
