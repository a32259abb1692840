package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrforge/internal/batch"
	"qrforge/internal/config"
	"qrforge/internal/logging"
	"qrforge/internal/model"
	"qrforge/internal/qrcode"
)

var testBatchCfg = config.BatchConfig{MaxItems: 10, MaxFileSizeBytes: 1 << 10, RunTimeout: time.Minute}

func newTestBatchService(t *testing.T, env *testEnv, cfg config.BatchConfig) BatchService {
	t.Helper()
	artifacts := NewArtifactStore(env.files, env.meta, time.Hour, logging.Discard())
	pipeline := batch.NewPipeline(qrcode.NewSkipProvider(), env.files, env.meta.BatchJobs(), logging.Discard(),
		batch.WithYield(0), batch.WithArtifactSaver(artifacts))
	s := NewBatchService(pipeline, env.meta.BatchJobs(), env.files, artifacts, testQR, cfg, logging.Discard())
	t.Cleanup(s.Close)
	return s
}

func TestBatchService_ParseRows(t *testing.T) {
	s := newTestBatchService(t, newTestEnv(t), testBatchCfg)

	rows, err := s.ParseRows(strings.NewReader("data,label\nhttps://a.example,A\nhello,\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = s.ParseRows(strings.NewReader(strings.Repeat("x\n", 11)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.ParseRows(strings.NewReader(strings.Repeat("y", 2<<10)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.ParseRows(strings.NewReader("data,label\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBatchService_RunSync(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := newTestBatchService(t, env, testBatchCfg)

	rows := []batch.Row{{Data: "https://a.example", Label: "a"}, {Data: "", Label: "blank"}, {Data: "hello", Label: "b"}}
	res, err := s.RunSync(ctx, BatchRequest{SourceName: "list.csv", Naming: "label", Size: 120}, rows)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, res.Status)
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, 1, res.Failed)

	st, err := s.Status(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, st.Job.Status)
	assert.Equal(t, "H", st.Job.Settings.ECC)
	assert.Equal(t, 120, st.Job.Settings.Size)
	assert.Equal(t, 100, st.Progress.Percent)
	assert.True(t, st.Progress.Done)
	require.NotNil(t, st.Result)
	assert.Len(t, st.Result.Items, 3)

	rc, job, err := s.Archive(ctx, res.JobID)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, res.JobID, job.ID)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.png", "b.png", "manifest.csv"}, names)

	counts, err := env.meta.Analytics().CountSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.EventBatch])
}

func TestBatchService_AllFailedHasNoArchive(t *testing.T) {
	ctx := context.Background()
	s := newTestBatchService(t, newTestEnv(t), testBatchCfg)

	res, err := s.RunSync(ctx, BatchRequest{}, []batch.Row{{Label: "only label"}})
	require.NoError(t, err)
	assert.Equal(t, model.BatchFailed, res.Status)

	_, _, err = s.Archive(ctx, res.JobID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchService_SubmitRunsInBackground(t *testing.T) {
	ctx := context.Background()
	s := newTestBatchService(t, newTestEnv(t), testBatchCfg)

	job, err := s.Submit(ctx, BatchRequest{SourceName: "bg.csv"}, []batch.Row{{Data: "one"}, {Data: "two"}})
	require.NoError(t, err)
	assert.Equal(t, model.BatchPending, job.Status)
	assert.Equal(t, 2, job.TotalItems)

	assert.Eventually(t, func() bool {
		st, err := s.Status(ctx, job.ID)
		return err == nil && st.Job.Status == model.BatchCompleted
	}, 5*time.Second, 10*time.Millisecond)

	st, err := s.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Job.ProcessedItems)
	assert.Equal(t, "batch/"+job.ID+".zip", st.Job.ArchivePath)
}

func TestBatchService_FinishedRunReleasesProgress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := newTestBatchService(t, env, testBatchCfg).(*batchService)

	job, err := s.Submit(ctx, BatchRequest{SourceName: "unpolled.csv"}, []batch.Row{{Data: "one"}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, tracked := s.tracker.Get(job.ID)
		stored, err := env.meta.BatchJobs().FindByID(ctx, job.ID)
		return !tracked && err == nil && stored.Status == model.BatchCompleted
	}, 5*time.Second, 10*time.Millisecond)

	st, err := s.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, st.Progress.Done)
	assert.Equal(t, 100, st.Progress.Percent)
	assert.Equal(t, 1, st.Progress.Completed)
}

func TestBatchService_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestBatchService(t, newTestEnv(t), testBatchCfg)

	_, err := s.RunSync(ctx, BatchRequest{Format: "bmp"}, []batch.Row{{Data: "x"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.RunSync(ctx, BatchRequest{Naming: "random"}, []batch.Row{{Data: "x"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Submit(ctx, BatchRequest{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Status(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Status(ctx, " ")
	assert.ErrorIs(t, err, ErrIDRequired)
}
