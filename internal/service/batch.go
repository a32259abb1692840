package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"qrforge/internal/batch"
	"qrforge/internal/config"
	"qrforge/internal/model"
	"qrforge/internal/qrcode"
	"qrforge/internal/render"
	"qrforge/internal/repository"
	"qrforge/internal/storage"
)

// batchResultTTL bounds how long per-item results of async runs stay
// queryable in memory.
const batchResultTTL = time.Hour

// BatchRequest carries the shared settings of a batch upload.
type BatchRequest struct {
	SourceName string
	Size       int
	Format     string
	ECC        string
	Naming     string
	Foreground string
	Background string
	IPAddress  string
}

// BatchStatus merges the persisted job with live progress and, once the
// run has finished in this process, the per-item results.
type BatchStatus struct {
	Job      *model.BatchJob `json:"job"`
	Progress batch.Progress  `json:"progress"`
	Result   *batch.Result   `json:"result,omitempty"`
}

// BatchService accepts CSV batches and runs them through the pipeline.
type BatchService interface {
	// ParseRows reads an uploaded CSV, enforcing the configured size and row limits.
	ParseRows(r io.Reader) ([]batch.Row, error)
	// Submit creates a pending job and runs it in the background.
	Submit(ctx context.Context, req BatchRequest, rows []batch.Row) (*model.BatchJob, error)
	// RunSync creates a job and runs it on the caller's goroutine.
	RunSync(ctx context.Context, req BatchRequest, rows []batch.Row) (*batch.Result, error)
	Status(ctx context.Context, jobID string) (*BatchStatus, error)
	// Archive opens the zip of a completed job. The caller closes it.
	Archive(ctx context.Context, jobID string) (io.ReadCloser, *model.BatchJob, error)
	// Close cancels background runs and waits for them to finish.
	Close()
}

type batchService struct {
	pipeline  *batch.Pipeline
	jobs      repository.BatchJobRepository
	store     storage.Storage
	artifacts ArtifactStore
	tracker   *batch.Tracker
	results   *expirable.LRU[string, *batch.Result]
	qr        config.QRConfig
	cfg       config.BatchConfig
	log       logrus.FieldLogger
	now       func() time.Time

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBatchService(pipeline *batch.Pipeline, jobs repository.BatchJobRepository, store storage.Storage, artifacts ArtifactStore, qr config.QRConfig, cfg config.BatchConfig, log logrus.FieldLogger) BatchService {
	root, cancel := context.WithCancel(context.Background())
	return &batchService{
		pipeline:  pipeline,
		jobs:      jobs,
		store:     store,
		artifacts: artifacts,
		tracker:   batch.NewTracker(),
		results:   expirable.NewLRU[string, *batch.Result](256, nil, batchResultTTL),
		qr:        qr,
		cfg:       cfg,
		log:       log.WithField("component", "batch_service"),
		now:       func() time.Time { return time.Now().UTC() },
		root:      root,
		cancel:    cancel,
	}
}

func (s *batchService) ParseRows(r io.Reader) ([]batch.Row, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	lr := &io.LimitedReader{R: r, N: s.cfg.MaxFileSizeBytes + 1}
	rows, err := batch.ParseCSV(lr, s.cfg.MaxItems)
	if lr.N <= 0 {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, s.cfg.MaxFileSizeBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rows, nil
}

// resolve validates request settings. Batch output defaults to the highest
// error-correction level.
func (s *batchService) resolve(req BatchRequest) (batch.Settings, model.BatchSettings, error) {
	var set batch.Settings
	size := req.Size
	if size == 0 {
		size = s.qr.DefaultSize
	}
	size = min(max(size, s.qr.MinSize), s.qr.MaxSize)
	set.Style = render.DefaultStyle(size)
	set.Style.QuietZone = s.qr.QuietZone

	var err error
	if set.Style.Format, err = render.ParseFormat(firstNonEmpty(req.Format, s.qr.DefaultFormat)); err != nil {
		return set, model.BatchSettings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if set.Level, err = qrcode.ParseLevel(firstNonEmpty(req.ECC, string(qrcode.LevelH))); err != nil {
		return set, model.BatchSettings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if set.Naming, err = batch.ParseNamingPattern(req.Naming); err != nil {
		return set, model.BatchSettings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if set.Style.Foreground, err = render.ParseColor(firstNonEmpty(req.Foreground, s.qr.DefaultFG)); err != nil {
		return set, model.BatchSettings{}, fmt.Errorf("%w: fg_color: %v", ErrInvalidInput, err)
	}
	if set.Style.Background, err = render.ParseColor(firstNonEmpty(req.Background, s.qr.DefaultBG)); err != nil {
		return set, model.BatchSettings{}, fmt.Errorf("%w: bg_color: %v", ErrInvalidInput, err)
	}
	set.PersistItems = s.cfg.PersistItems

	snapshot := model.BatchSettings{
		Size:          size,
		Format:        string(set.Style.Format),
		ECC:           string(set.Level),
		NamingPattern: string(set.Naming),
		Foreground:    render.Hex(set.Style.Foreground),
		Background:    render.Hex(set.Style.Background),
	}
	return set, snapshot, nil
}

func (s *batchService) create(ctx context.Context, req BatchRequest, rows []batch.Row) (*model.BatchJob, batch.Settings, error) {
	if len(rows) == 0 {
		return nil, batch.Settings{}, fmt.Errorf("%w: %v", ErrInvalidInput, batch.ErrNoRows)
	}
	if s.cfg.MaxItems > 0 && len(rows) > s.cfg.MaxItems {
		return nil, batch.Settings{}, fmt.Errorf("%w: %v", ErrInvalidInput, batch.ErrTooManyRows)
	}
	set, snapshot, err := s.resolve(req)
	if err != nil {
		return nil, set, err
	}
	job := model.NewBatchJob(uuid.NewString(), req.SourceName, len(rows), snapshot, s.now())
	job.IPAddress = req.IPAddress
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, set, fmt.Errorf("%w: create job: %v", ErrStorageFailure, err)
	}
	s.tracker.Update(batch.Progress{JobID: job.ID, Total: job.TotalItems})
	return job, set, nil
}

func (s *batchService) Submit(ctx context.Context, req BatchRequest, rows []batch.Row) (*model.BatchJob, error) {
	job, set, err := s.create(ctx, req, rows)
	if err != nil {
		return nil, err
	}
	accepted := *job

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx, cancel := s.runContext(s.root)
		defer cancel()
		_, _ = s.run(runCtx, job, rows, set)
	}()
	return &accepted, nil
}

func (s *batchService) RunSync(ctx context.Context, req BatchRequest, rows []batch.Row) (*batch.Result, error) {
	job, set, err := s.create(ctx, req, rows)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := s.runContext(ctx)
	defer cancel()
	return s.run(runCtx, job, rows, set)
}

func (s *batchService) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout > 0 {
		return context.WithTimeout(parent, s.cfg.RunTimeout)
	}
	return context.WithCancel(parent)
}

func (s *batchService) run(ctx context.Context, job *model.BatchJob, rows []batch.Row, set batch.Settings) (*batch.Result, error) {
	res, err := s.pipeline.Run(ctx, job, rows, set, s.tracker.Update)
	// the persisted job carries final counters once the run returns
	s.tracker.Forget(job.ID)
	if res != nil {
		s.results.Add(job.ID, res)
		s.artifacts.LogEvent(context.WithoutCancel(ctx), &model.AnalyticsEvent{
			EventType: model.EventBatch,
			Size:      set.Style.Size,
			Format:    string(set.Style.Format),
			IPAddress: job.IPAddress,
		})
	}
	if err != nil {
		if errors.Is(err, batch.ErrArchiveFailed) {
			return res, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		return res, err
	}
	return res, nil
}

func (s *batchService) Status(ctx context.Context, jobID string) (*BatchStatus, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrIDRequired
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	st := &BatchStatus{Job: job}
	if p, ok := s.tracker.Get(jobID); ok && !(job.Status.IsTerminal() && !p.Done) {
		st.Progress = p
	} else {
		st.Progress = batch.Progress{
			JobID:     job.ID,
			Current:   job.Attempted(),
			Total:     job.TotalItems,
			Completed: job.ProcessedItems,
			Failed:    job.FailedItems,
			Percent:   job.Percent(),
			Done:      job.Status.IsTerminal(),
		}
	}
	if res, ok := s.results.Get(jobID); ok {
		st.Result = res
	}
	if job.Status.IsTerminal() {
		s.tracker.Forget(jobID)
	}
	return st, nil
}

func (s *batchService) Archive(ctx context.Context, jobID string) (io.ReadCloser, *model.BatchJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, nil, ErrIDRequired
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, nil, mapRepoErr(err)
	}
	if job.Status != model.BatchCompleted || job.ArchivePath == "" {
		return nil, nil, fmt.Errorf("%w: job %s has no archive", ErrNotFound, jobID)
	}
	rc, _, err := s.store.Get(ctx, job.ArchivePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: read archive: %v", ErrStorageFailure, err)
	}
	return rc, job, nil
}

func (s *batchService) Close() {
	s.cancel()
	s.wg.Wait()
}
