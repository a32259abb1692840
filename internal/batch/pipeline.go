package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"qrforge/internal/model"
	"qrforge/internal/payload"
	"qrforge/internal/qrcode"
	"qrforge/internal/render"
	"qrforge/internal/storage"
)

var (
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrforge_batch_items_total",
		Help: "Batch rows processed, by outcome.",
	}, []string{"status"})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrforge_batch_jobs_total",
		Help: "Batch jobs finished, by terminal status.",
	}, []string{"status"})
)

// ErrArchiveFailed marks a run whose items were attempted but whose zip
// could not be written.
var ErrArchiveFailed = errors.New("archive creation failed")

// DefaultYield is the pause between rows.
const DefaultYield = 10 * time.Millisecond

// ArtifactSaver persists one rendered item as a standalone artifact.
type ArtifactSaver interface {
	Save(ctx context.Context, a *model.Artifact, out *render.Output) (*model.Artifact, error)
}

// JobStore persists job snapshots.
type JobStore interface {
	Update(ctx context.Context, j *model.BatchJob) error
}

// Settings is the resolved, shared style of every row in a run.
type Settings struct {
	Style        render.Style
	Level        qrcode.Level
	Naming       NamingPattern
	PersistItems bool
}

// ItemResult is the outcome of one row. Error never contains row data.
type ItemResult struct {
	Index      int    `json:"index"`
	Label      string `json:"label,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
}

// Result aggregates a run. Completed+Failed always equals Total.
type Result struct {
	JobID       string            `json:"job_id"`
	Status      model.BatchStatus `json:"status"`
	Total       int               `json:"total"`
	Completed   int               `json:"completed"`
	Failed      int               `json:"failed"`
	Items       []ItemResult      `json:"results"`
	ArchivePath string            `json:"archive_path,omitempty"`
	ArchiveSize int64             `json:"archive_size,omitempty"`
}

// ArchiveKey is the storage key of a job's zip.
func ArchiveKey(jobID string) string {
	return "batch/" + jobID + ".zip"
}

// Pipeline runs batch jobs. One Pipeline may run many jobs concurrently;
// rows within a job are always sequential.
type Pipeline struct {
	provider qrcode.MatrixProvider
	store    storage.Storage
	jobs     JobStore
	saver    ArtifactSaver
	log      logrus.FieldLogger
	yield    time.Duration
	now      func() time.Time
}

type Option func(*Pipeline)

// WithArtifactSaver enables per-item artifact persistence for runs whose
// settings ask for it.
func WithArtifactSaver(s ArtifactSaver) Option {
	return func(p *Pipeline) { p.saver = s }
}

// WithYield overrides the pause between rows. Zero only yields the processor.
func WithYield(d time.Duration) Option {
	return func(p *Pipeline) { p.yield = d }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(provider qrcode.MatrixProvider, store storage.Storage, jobs JobStore, log logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider: provider,
		store:    store,
		jobs:     jobs,
		log:      log.WithField("component", "batch"),
		yield:    DefaultYield,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes rows for a pending job and drives it to a terminal status.
// Per-row failures are counted, never fatal. A cancelled ctx stops rendering;
// the remaining rows are counted as failed and whatever succeeded is still
// archived. The returned error is non-nil only for run-level failures, and
// the partial Result is returned alongside it.
func (p *Pipeline) Run(ctx context.Context, job *model.BatchJob, rows []Row, set Settings, onProgress func(Progress)) (*Result, error) {
	if job.TotalItems != len(rows) {
		return nil, fmt.Errorf("job %s declares %d items, got %d rows", job.ID, job.TotalItems, len(rows))
	}
	log := p.log.WithField("job_id", job.ID)
	if err := job.Transition(model.BatchProcessing, p.now()); err != nil {
		return nil, err
	}
	p.persist(ctx, job, log)
	log.WithFields(logrus.Fields{"event": "batch_start", "status": "in_progress", "total": len(rows)}).Info("batch started")

	names := newNamer(set.Naming)
	res := &Result{JobID: job.ID, Total: len(rows), Items: make([]ItemResult, 0, len(rows))}
	var entries []archiveEntry

	for i, row := range rows {
		item := ItemResult{Index: i, Label: row.Label}
		if ctx.Err() != nil {
			item.Error = "run cancelled"
		} else if out, err := p.renderRow(row, set); err != nil {
			item.Error = itemError(err)
			log.WithFields(logrus.Fields{
				"event":       "batch_item_failed",
				"status":      "error",
				"index":       i,
				"data_length": len(row.Data),
			}).Warn(item.Error)
		} else {
			item.Success = true
			item.Filename = names.name(i, row) + "." + out.Extension
			entries = append(entries, archiveEntry{name: item.Filename, data: out.Bytes})
			if set.PersistItems && p.saver != nil {
				item.ArtifactID = p.saveItem(ctx, row, set, out, log)
			}
		}

		if err := job.RecordItem(item.Success); err != nil {
			return nil, fmt.Errorf("record item %d: %w", i, err)
		}
		res.Items = append(res.Items, item)
		if item.Success {
			itemsTotal.WithLabelValues("ok").Inc()
		} else {
			itemsTotal.WithLabelValues("failed").Inc()
		}

		if onProgress != nil {
			onProgress(progressOf(job, i+1, false))
		}
		p.persist(ctx, job, log)
		if i < len(rows)-1 {
			p.pause(ctx)
		}
	}

	finishCtx := ctx
	if ctx.Err() != nil {
		finishCtx = context.WithoutCancel(ctx)
	}

	var runErr error
	if job.ProcessedItems == 0 {
		job.ErrorMessage = "no items succeeded"
		_ = job.Transition(model.BatchFailed, p.now())
	} else if key, size, err := p.writeArchive(finishCtx, job, entries, res.Items); err != nil {
		job.ErrorMessage = ErrArchiveFailed.Error()
		_ = job.Transition(model.BatchFailed, p.now())
		runErr = fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	} else {
		job.ArchivePath = key
		res.ArchivePath = key
		res.ArchiveSize = size
		_ = job.Transition(model.BatchCompleted, p.now())
	}

	res.Status = job.Status
	res.Completed = job.ProcessedItems
	res.Failed = job.FailedItems

	if err := p.jobs.Update(finishCtx, job); err != nil {
		log.WithFields(logrus.Fields{"event": "batch_persist_failed", "status": "error", "error_message": err.Error()}).Error("final job state not persisted")
		runErr = errors.Join(runErr, fmt.Errorf("persist job %s: %w", job.ID, err))
	}
	if onProgress != nil {
		onProgress(progressOf(job, len(rows), true))
	}
	jobsTotal.WithLabelValues(job.Status.String()).Inc()

	entry := log.WithFields(logrus.Fields{
		"event":     "batch_finish",
		"status":    job.Status.String(),
		"total":     res.Total,
		"completed": res.Completed,
		"failed":    res.Failed,
	})
	if runErr != nil {
		entry.WithField("error_message", runErr.Error()).Error("batch finished with errors")
	} else {
		entry.Info("batch finished")
	}
	return res, runErr
}

func (p *Pipeline) renderRow(row Row, set Settings) (*render.Output, error) {
	pl, err := payload.ParseRaw(row.Data)
	if err != nil {
		return nil, err
	}
	m, err := p.provider.Matrix(pl.String(), set.Level)
	if err != nil {
		return nil, err
	}
	return render.Render(m, set.Style)
}

func (p *Pipeline) saveItem(ctx context.Context, row Row, set Settings, out *render.Output, log logrus.FieldLogger) string {
	a := &model.Artifact{
		DataType:    string(payload.KindRaw),
		Payload:     row.Data,
		Size:        set.Style.Size,
		Foreground:  render.Hex(set.Style.Foreground),
		Background:  render.Hex(set.Style.Background),
		Format:      string(set.Style.Format),
		ECC:         string(set.Level),
		DotStyle:    string(set.Style.DotStyle),
		CornerStyle: string(set.Style.CornerStyle),
	}
	if row.Label != "" {
		a.OriginalData = map[string]string{"data": row.Data, "label": row.Label}
	}
	saved, err := p.saver.Save(ctx, a, out)
	if err != nil {
		log.WithFields(logrus.Fields{"event": "batch_item_persist_failed", "status": "error", "error_message": err.Error()}).Warn("item artifact not persisted")
		return ""
	}
	return saved.ID
}

func (p *Pipeline) writeArchive(ctx context.Context, job *model.BatchJob, entries []archiveEntry, items []ItemResult) (string, int64, error) {
	data, err := buildArchive(entries, items, job.CreatedAt)
	if err != nil {
		return "", 0, err
	}
	key := ArchiveKey(job.ID)
	info, err := p.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: "application/zip",
		Metadata:    map[string]string{"job-id": job.ID},
	})
	if err != nil {
		return "", 0, fmt.Errorf("store archive: %w", err)
	}
	return info.Key, info.Size, nil
}

func (p *Pipeline) persist(ctx context.Context, job *model.BatchJob, log logrus.FieldLogger) {
	if err := p.jobs.Update(ctx, job); err != nil {
		log.WithFields(logrus.Fields{"event": "batch_progress_persist_failed", "status": "error", "error_message": err.Error()}).Warn("job progress not persisted")
	}
}

func (p *Pipeline) pause(ctx context.Context) {
	if p.yield <= 0 {
		runtime.Gosched()
		return
	}
	t := time.NewTimer(p.yield)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func progressOf(job *model.BatchJob, current int, done bool) Progress {
	return Progress{
		JobID:     job.ID,
		Current:   current,
		Total:     job.TotalItems,
		Completed: job.ProcessedItems,
		Failed:    job.FailedItems,
		Percent:   job.Percent(),
		Done:      done,
	}
}

func itemError(err error) string {
	switch {
	case errors.Is(err, payload.ErrEmptyPayload):
		return "empty payload"
	case errors.Is(err, render.ErrInvalidStyle):
		return "invalid style"
	default:
		return "encoding failed"
	}
}
