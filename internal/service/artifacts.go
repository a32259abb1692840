package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qrforge/internal/model"
	"qrforge/internal/render"
	"qrforge/internal/repository"
	"qrforge/internal/storage"
)

// ArtifactListResult is the service-level DTO for paginated artifacts.
type ArtifactListResult struct {
	Items []model.Artifact `json:"data"`
	Total int              `json:"total"`
}

// ArtifactStats summarizes generation and usage since a point in time.
type ArtifactStats struct {
	Since   time.Time                 `json:"since"`
	ByType  []model.ArtifactStat      `json:"by_type"`
	Events  map[model.EventType]int64 `json:"events"`
	Batches []model.BatchJobStat      `json:"batches"`
}

// ArtifactStore owns persistence of artifacts and analytics events.
type ArtifactStore interface {
	// Save writes the rendered bytes under a fresh filename, then inserts the
	// metadata row. If the insert fails the stored object is removed again.
	Save(ctx context.Context, a *model.Artifact, out *render.Output) (*model.Artifact, error)

	// Get and GetByFilename only return artifacts that have not expired.
	Get(ctx context.Context, id string) (*model.Artifact, error)
	GetByFilename(ctx context.Context, filename string) (*model.Artifact, error)

	// Open returns the content of a non-expired artifact. The caller closes it.
	Open(ctx context.Context, filename string) (io.ReadCloser, *model.Artifact, error)

	// PresignURL returns a direct download URL when the storage backend supports it.
	PresignURL(ctx context.Context, a *model.Artifact, expiry time.Duration) (string, error)

	RecordAccess(ctx context.Context, id string) BestEffort
	LogEvent(ctx context.Context, ev *model.AnalyticsEvent) BestEffort

	// Delete removes an artifact regardless of expiry: storage first, then metadata.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) (*ArtifactListResult, error)
	Stats(ctx context.Context, since time.Time) (*ArtifactStats, error)
}

type artifactStore struct {
	store     storage.Storage
	meta      repository.MetadataStore
	retention time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
	token     func() string
}

// NewArtifactStore constructs an ArtifactStore. retention is added to the
// creation time to compute each artifact's expiry.
func NewArtifactStore(store storage.Storage, meta repository.MetadataStore, retention time.Duration, log logrus.FieldLogger) ArtifactStore {
	return newArtifactStore(store, meta, retention, log)
}

func newArtifactStore(store storage.Storage, meta repository.MetadataStore, retention time.Duration, log logrus.FieldLogger) *artifactStore {
	return &artifactStore{
		store:     store,
		meta:      meta,
		retention: retention,
		log:       log.WithField("component", "artifacts"),
		now:       func() time.Time { return time.Now().UTC() },
		token:     randomToken,
	}
}

// randomToken is 13 hex characters of a random UUID.
func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
}

func (s *artifactStore) Save(ctx context.Context, a *model.Artifact, out *render.Output) (*model.Artifact, error) {
	if a == nil || out == nil || len(out.Bytes) == 0 {
		return nil, fmt.Errorf("%w: nothing to store", ErrInvalidInput)
	}
	if a.Payload == "" {
		return nil, ErrEmptyPayload
	}

	now := s.now()
	filename := fmt.Sprintf("qr_%s_%d.%s", s.token(), now.Unix(), out.Extension)
	key := path.Join("codes", filename)

	info, err := s.store.Put(ctx, key, bytes.NewReader(out.Bytes), storage.PutObjectOptions{
		Size:        int64(len(out.Bytes)),
		ContentType: out.ContentType,
		Metadata:    map[string]string{"data-type": a.DataType},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upload to storage: %v", ErrStorageFailure, err)
	}

	a.ID = uuid.NewString()
	a.Filename = filename
	a.StoragePath = info.Key
	a.FileSize = info.Size
	a.CreatedAt = now
	a.ExpiresAt = now.Add(s.retention)

	if err := s.meta.Artifacts().Create(ctx, a); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.WithFields(logrus.Fields{
				"event":         "artifact_rollback",
				"status":        "error",
				"key":           key,
				"error_message": delErr.Error(),
			}).Error("rollback delete failed")
			return nil, fmt.Errorf("%w: db save failed: %v; rollback delete failed: %v", ErrStorageFailure, err, delErr)
		}
		return nil, fmt.Errorf("%w: db save failed: %v", ErrStorageFailure, err)
	}

	generationsTotal.WithLabelValues(a.DataType, a.Format).Inc()
	return a, nil
}

func (s *artifactStore) Get(ctx context.Context, id string) (*model.Artifact, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	a, err := s.meta.Artifacts().FindActiveByID(ctx, id, s.now())
	return a, mapRepoErr(err)
}

func (s *artifactStore) GetByFilename(ctx context.Context, filename string) (*model.Artifact, error) {
	if filename == "" {
		return nil, ErrIDRequired
	}
	a, err := s.meta.Artifacts().FindActiveByFilename(ctx, filename, s.now())
	return a, mapRepoErr(err)
}

func (s *artifactStore) Open(ctx context.Context, filename string) (io.ReadCloser, *model.Artifact, error) {
	a, err := s.GetByFilename(ctx, filename)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, a.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: read content: %v", ErrStorageFailure, err)
	}
	return rc, a, nil
}

func (s *artifactStore) PresignURL(ctx context.Context, a *model.Artifact, expiry time.Duration) (string, error) {
	return s.store.PresignGet(ctx, a.StoragePath, expiry)
}

func (s *artifactStore) RecordAccess(ctx context.Context, id string) BestEffort {
	return bestEffort(s.log, "record_access", s.meta.Artifacts().IncrementAccessCount(ctx, id))
}

func (s *artifactStore) LogEvent(ctx context.Context, ev *model.AnalyticsEvent) BestEffort {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	return bestEffort(s.log, "log_event", s.meta.Analytics().Insert(ctx, ev))
}

func (s *artifactStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	a, err := s.meta.Artifacts().FindByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	// keep the row if the object survives so the path is not lost
	if err := s.store.Delete(ctx, a.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: delete storage: %v", ErrStorageFailure, err)
	}
	return s.meta.Artifacts().Delete(ctx, id)
}

func (s *artifactStore) List(ctx context.Context, limit, offset int) (*ArtifactListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.meta.Artifacts().List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ArtifactListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *artifactStore) Stats(ctx context.Context, since time.Time) (*ArtifactStats, error) {
	byType, err := s.meta.Artifacts().Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	events, err := s.meta.Analytics().CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	batches, err := s.meta.BatchJobs().Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	return &ArtifactStats{Since: since, ByType: byType, Events: events, Batches: batches}, nil
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
