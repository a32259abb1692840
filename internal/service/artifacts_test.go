package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qrforge/internal/logging"
	"qrforge/internal/model"
	"qrforge/internal/render"
	"qrforge/internal/repository"
	repoMocks "qrforge/internal/repository/mocks"
	"qrforge/internal/storage"
	storeMocks "qrforge/internal/storage/mocks"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newMockArtifactStore(st storage.Storage, meta repository.MetadataStore) *artifactStore {
	s := newArtifactStore(st, meta, 30*24*time.Hour, logging.Discard())
	s.now = func() time.Time { return t0 }
	s.token = func() string { return "65f1a2b3c4d5e" }
	return s
}

func pngOutput() *render.Output {
	return &render.Output{Bytes: []byte("\x89PNG fake"), ContentType: "image/png", Extension: "png", Width: 200}
}

func TestArtifactStore_Save(t *testing.T) {
	ctx := context.Background()
	wantKey := "codes/qr_65f1a2b3c4d5e_1777629600.png"

	tests := []struct {
		name       string
		artifact   *model.Artifact
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockArtifactRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name:     "happy path",
			artifact: &model.Artifact{DataType: "url", Payload: "https://example.com", Format: "png"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockArtifactRepository) {
				mStore.On("Put", ctx, wantKey, mock.Anything, storage.PutObjectOptions{
					Size:        9,
					ContentType: "image/png",
					Metadata:    map[string]string{"data-type": "url"},
				}).Return(storage.ObjectInfo{Key: wantKey, Size: 10, ContentType: "image/png"}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(a *model.Artifact) bool {
					return a.ID != "" && a.StoragePath == wantKey && a.ExpiresAt.Equal(t0.Add(30*24*time.Hour))
				})).Return(nil)
			},
		},
		{
			name:     "empty payload",
			artifact: &model.Artifact{DataType: "url"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockArtifactRepository) {
			},
			wantErr: ErrEmptyPayload,
		},
		{
			name:     "storage error",
			artifact: &model.Artifact{DataType: "url", Payload: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockArtifactRepository) {
				mStore.On("Put", ctx, wantKey, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("disk full"))
			},
			wantErr:    ErrStorageFailure,
			wantErrMsg: "upload to storage: disk full",
		},
		{
			name:     "db error rolls back object",
			artifact: &model.Artifact{DataType: "url", Payload: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockArtifactRepository) {
				mStore.On("Put", ctx, wantKey, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: wantKey, Size: 10}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(errors.New("db fail"))
				mStore.On("Delete", ctx, wantKey).Return(nil)
			},
			wantErr:    ErrStorageFailure,
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:     "db error and rollback error",
			artifact: &model.Artifact{DataType: "url", Payload: "x"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockArtifactRepository) {
				mStore.On("Put", ctx, wantKey, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: wantKey, Size: 10}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(errors.New("db fail"))
				mStore.On("Delete", ctx, wantKey).Return(errors.New("delete fail"))
			},
			wantErr:    ErrStorageFailure,
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			meta := repoMocks.NewMockMetadataStore()
			tt.setupMocks(mStore, meta.ArtifactRepo)

			s := newMockArtifactStore(mStore, meta)
			got, err := s.Save(ctx, tt.artifact, pngOutput())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantErrMsg != "" {
					assert.Contains(t, err.Error(), tt.wantErrMsg)
				}
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "qr_65f1a2b3c4d5e_1777629600.png", got.Filename)
				assert.Equal(t, int64(10), got.FileSize)
				assert.Equal(t, t0, got.CreatedAt)
			}
			mStore.AssertExpectations(t)
			meta.ArtifactRepo.AssertExpectations(t)
		})
	}
}

func TestArtifactStore_ExpiredIsNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := newArtifactStore(env.files, env.meta, time.Hour, logging.Discard())
	s.now = func() time.Time { return t0 }

	saved, err := s.Save(ctx, &model.Artifact{DataType: "text", Payload: "hello", Format: "png", ECC: "M"}, pngOutput())
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Payload)

	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	_, err = s.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetByFilename(ctx, saved.Filename)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.Open(ctx, saved.Filename)
	assert.ErrorIs(t, err, ErrNotFound)

	// bytes are still there until a sweep removes them
	rc, _, err := env.files.Get(ctx, saved.StoragePath)
	require.NoError(t, err)
	rc.Close()
}

func TestArtifactStore_OpenAndAccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := newArtifactStore(env.files, env.meta, time.Hour, logging.Discard())

	saved, err := s.Save(ctx, &model.Artifact{DataType: "url", Payload: "https://example.com", Format: "png"}, pngOutput())
	require.NoError(t, err)

	rc, a, err := s.Open(ctx, saved.Filename)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, saved.ID, a.ID)
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))

	assert.True(t, s.RecordAccess(ctx, saved.ID).OK())
	assert.True(t, s.LogEvent(ctx, &model.AnalyticsEvent{ArtifactID: saved.ID, EventType: model.EventDownload}).OK())

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)

	stats, err := s.Stats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats.ByType, 1)
	assert.Equal(t, int64(1), stats.Events[model.EventDownload])

	_, err = s.PresignURL(ctx, saved, time.Minute)
	assert.ErrorIs(t, err, storage.ErrPresignUnsupported)
}

func TestArtifactStore_BestEffortFailures(t *testing.T) {
	ctx := context.Background()
	meta := repoMocks.NewMockMetadataStore()
	meta.ArtifactRepo.On("IncrementAccessCount", ctx, "a1").Return(errors.New("locked"))
	meta.AnalyticsRepo.On("Insert", ctx, mock.Anything).Return(errors.New("locked"))
	s := newMockArtifactStore(new(storeMocks.MockStorage), meta)

	before := testutil.ToFloat64(bestEffortFailures.WithLabelValues("record_access"))
	res := s.RecordAccess(ctx, "a1")
	assert.False(t, res.OK())
	assert.Equal(t, "record_access", res.Op)
	assert.Equal(t, before+1, testutil.ToFloat64(bestEffortFailures.WithLabelValues("record_access")))

	ev := &model.AnalyticsEvent{EventType: model.EventGenerate}
	assert.False(t, s.LogEvent(ctx, ev).OK())
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, t0, ev.CreatedAt)
}

func TestArtifactStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes object then row", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		meta := repoMocks.NewMockMetadataStore()
		meta.ArtifactRepo.On("FindByID", ctx, "a1").Return(&model.Artifact{ID: "a1", StoragePath: "codes/a.png"}, nil)
		mStore.On("Delete", ctx, "codes/a.png").Return(nil)
		meta.ArtifactRepo.On("Delete", ctx, "a1").Return(nil)

		require.NoError(t, newMockArtifactStore(mStore, meta).Delete(ctx, "a1"))
		mStore.AssertExpectations(t)
		meta.ArtifactRepo.AssertExpectations(t)
	})

	t.Run("keeps row when storage delete fails", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		meta := repoMocks.NewMockMetadataStore()
		meta.ArtifactRepo.On("FindByID", ctx, "a1").Return(&model.Artifact{ID: "a1", StoragePath: "codes/a.png"}, nil)
		mStore.On("Delete", ctx, "codes/a.png").Return(errors.New("denied"))

		err := newMockArtifactStore(mStore, meta).Delete(ctx, "a1")
		assert.ErrorIs(t, err, ErrStorageFailure)
		meta.ArtifactRepo.AssertNotCalled(t, "Delete", ctx, "a1")
	})

	t.Run("not found", func(t *testing.T) {
		meta := repoMocks.NewMockMetadataStore()
		meta.ArtifactRepo.On("FindByID", ctx, "nope").Return(nil, repository.ErrNotFound)
		err := newMockArtifactStore(new(storeMocks.MockStorage), meta).Delete(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("id required", func(t *testing.T) {
		err := newMockArtifactStore(nil, nil).Delete(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestArtifactStore_ListClampsPaging(t *testing.T) {
	ctx := context.Background()
	meta := repoMocks.NewMockMetadataStore()
	meta.ArtifactRepo.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 0}).
		Return(&repository.PageResult[model.Artifact]{Items: []model.Artifact{{ID: "a"}}, Total: 1}, nil)

	res, err := newMockArtifactStore(nil, meta).List(ctx, 500, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}
