package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"qrforge/internal/repository"
	"qrforge/internal/storage"
)

// SweepResult reports one cleanup pass. Counts reflect what was actually
// deleted even when the sweep is partial.
type SweepResult struct {
	Window            time.Duration `json:"-"`
	WindowSeconds     int64         `json:"window_seconds"`
	ArtifactsDeleted  int64         `json:"artifacts_deleted"`
	FilesDeleted      int64         `json:"files_deleted"`
	BatchFilesDeleted int64         `json:"batch_files_deleted"`
	AnalyticsDeleted  int64         `json:"analytics_deleted"`
	BatchJobsDeleted  int64         `json:"batch_jobs_deleted"`
	BytesFreed        int64         `json:"bytes_freed"`
	Errors            []string      `json:"errors,omitempty"`
	Partial           bool          `json:"partial"`
	Duration          time.Duration `json:"-"`
}

// Cleaner evicts content and metadata older than a retention window.
type Cleaner interface {
	// Sweep runs one pass, waiting for any running pass to finish first.
	// A pass with any failed deletion returns its result and ErrPartialSweep.
	Sweep(ctx context.Context, window time.Duration) (*SweepResult, error)
	// MaybeTrigger starts a detached sweep with the configured probability
	// and returns immediately. It never waits on a running sweep.
	MaybeTrigger()
	Start(ctx context.Context)
	Stop()
}

// CleanupScheduler implements Cleaner.
type CleanupScheduler struct {
	store       storage.Storage
	cleanup     repository.CleanupRepository
	window      time.Duration
	interval    time.Duration
	probability float64
	log         logrus.FieldLogger

	now  func() time.Time
	roll func() float64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Cleaner = (*CleanupScheduler)(nil)

// NewCleanupScheduler builds a scheduler. window is the default retention
// used by ticker and opportunistic sweeps; interval 0 disables the ticker.
func NewCleanupScheduler(store storage.Storage, cleanup repository.CleanupRepository, window, interval time.Duration, probability float64, log logrus.FieldLogger) *CleanupScheduler {
	return &CleanupScheduler{
		store:       store,
		cleanup:     cleanup,
		window:      window,
		interval:    interval,
		probability: probability,
		log:         log.WithField("component", "cleanup"),
		now:         func() time.Time { return time.Now().UTC() },
		roll:        rand.Float64,
	}
}

func (c *CleanupScheduler) Sweep(ctx context.Context, window time.Duration) (*SweepResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep(ctx, window, "manual")
}

func (c *CleanupScheduler) MaybeTrigger() {
	if c.probability <= 0 || c.roll() >= c.probability {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if !c.mu.TryLock() {
			c.log.WithFields(logrus.Fields{"event": "sweep_skipped", "status": "skipped"}).Debug("sweep already running")
			return
		}
		defer c.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, _ = c.sweep(ctx, c.window, "opportunistic")
	}()
}

// Start runs a sweep every interval until ctx is cancelled or Stop is called.
func (c *CleanupScheduler) Start(ctx context.Context) {
	if c.interval <= 0 {
		c.log.WithField("event", "scheduler_disabled").Info("periodic cleanup disabled")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				_, _ = c.sweep(runCtx, c.window, "scheduled")
				c.mu.Unlock()
			}
		}
	}()
	c.log.WithFields(logrus.Fields{"event": "scheduler_start", "interval": c.interval.String()}).Info("periodic cleanup started")
}

// Stop cancels the ticker and waits for in-flight sweeps.
func (c *CleanupScheduler) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// sweep requires c.mu to be held.
func (c *CleanupScheduler) sweep(ctx context.Context, window time.Duration, trigger string) (*SweepResult, error) {
	ctx, span := startSpan(ctx, "CleanupScheduler.Sweep",
		attribute.String("cleanup.trigger", trigger),
		attribute.Int64("cleanup.window_seconds", int64(window/time.Second)),
	)
	defer span.End()

	start := time.Now()
	now := c.now()
	cutoff := now.Add(-window)
	res := &SweepResult{Window: window, WindowSeconds: int64(window / time.Second)}

	objects, err := c.store.List(ctx, "")
	if err != nil {
		res.fail("list storage: %v", err)
	}
	for _, obj := range objects {
		if storage.IsSentinel(obj.Key) || now.Sub(obj.LastModified) < window {
			continue
		}
		if err := c.store.Delete(ctx, obj.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			res.fail("delete %s: %v", obj.Key, err)
			continue
		}
		res.BytesFreed += obj.Size
		if strings.HasPrefix(obj.Key, "batch/") {
			res.BatchFilesDeleted++
		} else {
			res.FilesDeleted++
		}
	}

	counts, err := c.cleanup.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		res.fail("delete metadata: %v", err)
	} else {
		res.ArtifactsDeleted = counts.Artifacts
		res.AnalyticsDeleted = counts.Analytics
		res.BatchJobsDeleted = counts.BatchJobs
	}
	res.Duration = time.Since(start)

	outcome := "ok"
	if res.Partial {
		outcome = "partial"
	}
	sweepsTotal.WithLabelValues(outcome, trigger).Inc()
	sweepDuration.Observe(res.Duration.Seconds())
	sweepDeletedTotal.WithLabelValues("files").Add(float64(res.FilesDeleted))
	sweepDeletedTotal.WithLabelValues("batch_files").Add(float64(res.BatchFilesDeleted))
	sweepDeletedTotal.WithLabelValues("artifacts").Add(float64(res.ArtifactsDeleted))
	sweepDeletedTotal.WithLabelValues("analytics").Add(float64(res.AnalyticsDeleted))
	sweepDeletedTotal.WithLabelValues("batch_jobs").Add(float64(res.BatchJobsDeleted))
	sweepBytesFreed.Add(float64(res.BytesFreed))

	entry := c.log.WithFields(logrus.Fields{
		"event":               "sweep",
		"status":              outcome,
		"trigger":             trigger,
		"window":              window.String(),
		"files_deleted":       res.FilesDeleted,
		"batch_files_deleted": res.BatchFilesDeleted,
		"artifacts_deleted":   res.ArtifactsDeleted,
		"analytics_deleted":   res.AnalyticsDeleted,
		"batch_jobs_deleted":  res.BatchJobsDeleted,
		"bytes_freed":         res.BytesFreed,
		"latency":             res.Duration.String(),
	})
	if res.Partial {
		entry.WithField("errors", len(res.Errors)).Warn("sweep partially failed")
		err := fmt.Errorf("%w: %d errors", ErrPartialSweep, len(res.Errors))
		failSpan(span, err)
		return res, err
	}
	entry.Info("sweep finished")
	return res, nil
}

func (r *SweepResult) fail(format string, args ...any) {
	r.Partial = true
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
