package mocks

import (
	"context"
	"io"
	"time"

	"qrforge/internal/batch"
	"qrforge/internal/model"
	"qrforge/internal/render"
	"qrforge/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Save(ctx context.Context, a *model.Artifact, out *render.Output) (*model.Artifact, error) {
	args := m.Called(ctx, a, out)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactStore) Get(ctx context.Context, id string) (*model.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactStore) GetByFilename(ctx context.Context, filename string) (*model.Artifact, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactStore) Open(ctx context.Context, filename string) (io.ReadCloser, *model.Artifact, error) {
	args := m.Called(ctx, filename)
	rc, _ := args.Get(0).(io.ReadCloser)
	a, _ := args.Get(1).(*model.Artifact)
	return rc, a, args.Error(2)
}

func (m *MockArtifactStore) PresignURL(ctx context.Context, a *model.Artifact, expiry time.Duration) (string, error) {
	args := m.Called(ctx, a, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) RecordAccess(ctx context.Context, id string) service.BestEffort {
	args := m.Called(ctx, id)
	return service.BestEffort{Op: "record_access", Err: args.Error(0)}
}

func (m *MockArtifactStore) LogEvent(ctx context.Context, ev *model.AnalyticsEvent) service.BestEffort {
	args := m.Called(ctx, ev)
	return service.BestEffort{Op: "log_event", Err: args.Error(0)}
}

func (m *MockArtifactStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArtifactStore) List(ctx context.Context, limit, offset int) (*service.ArtifactListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ArtifactListResult), args.Error(1)
}

func (m *MockArtifactStore) Stats(ctx context.Context, since time.Time) (*service.ArtifactStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ArtifactStats), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GenerateResult), args.Error(1)
}

type MockPresetService struct {
	mock.Mock
}

func (m *MockPresetService) List(ctx context.Context) ([]model.StylePreset, error) {
	args := m.Called(ctx)
	presets, _ := args.Get(0).([]model.StylePreset)
	return presets, args.Error(1)
}

func (m *MockPresetService) ByName(ctx context.Context, name string) (*model.StylePreset, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StylePreset), args.Error(1)
}

func (m *MockPresetService) Default(ctx context.Context) (*model.StylePreset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StylePreset), args.Error(1)
}

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, sessionID string) (*model.UserSettings, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

func (m *MockSettingsService) Save(ctx context.Context, us *model.UserSettings) (*model.UserSettings, error) {
	args := m.Called(ctx, us)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) ParseRows(r io.Reader) ([]batch.Row, error) {
	args := m.Called(r)
	rows, _ := args.Get(0).([]batch.Row)
	return rows, args.Error(1)
}

func (m *MockBatchService) Submit(ctx context.Context, req service.BatchRequest, rows []batch.Row) (*model.BatchJob, error) {
	args := m.Called(ctx, req, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchJob), args.Error(1)
}

func (m *MockBatchService) RunSync(ctx context.Context, req service.BatchRequest, rows []batch.Row) (*batch.Result, error) {
	args := m.Called(ctx, req, rows)
	res, _ := args.Get(0).(*batch.Result)
	return res, args.Error(1)
}

func (m *MockBatchService) Status(ctx context.Context, jobID string) (*service.BatchStatus, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchStatus), args.Error(1)
}

func (m *MockBatchService) Archive(ctx context.Context, jobID string) (io.ReadCloser, *model.BatchJob, error) {
	args := m.Called(ctx, jobID)
	rc, _ := args.Get(0).(io.ReadCloser)
	job, _ := args.Get(1).(*model.BatchJob)
	return rc, job, args.Error(2)
}

func (m *MockBatchService) Close() {
	m.Called()
}

type MockCleaner struct {
	mock.Mock
}

func (m *MockCleaner) Sweep(ctx context.Context, window time.Duration) (*service.SweepResult, error) {
	args := m.Called(ctx, window)
	res, _ := args.Get(0).(*service.SweepResult)
	return res, args.Error(1)
}

func (m *MockCleaner) MaybeTrigger() {
	m.Called()
}

func (m *MockCleaner) Start(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockCleaner) Stop() {
	m.Called()
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Record(ctx context.Context, entry *model.AdminLog) service.BestEffort {
	args := m.Called(ctx, entry)
	return service.BestEffort{Op: "admin_log", Err: args.Error(0)}
}

func (m *MockAuditLog) Recent(ctx context.Context, limit int) ([]model.AdminLog, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]model.AdminLog)
	return entries, args.Error(1)
}
