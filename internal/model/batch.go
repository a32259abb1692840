package model

import (
	"errors"
	"fmt"
	"time"
)

// BatchStatus represents the processing state of a batch job.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchPending, BatchProcessing, BatchCompleted, BatchFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// validTransitions is the monotone status graph: pending → processing →
// {completed, failed}. pending → failed covers jobs rejected before start.
var validTransitions = map[BatchStatus]map[BatchStatus]bool{
	BatchPending:    {BatchProcessing: true, BatchFailed: true},
	BatchProcessing: {BatchCompleted: true, BatchFailed: true},
	BatchCompleted:  {},
	BatchFailed:     {},
}

var (
	ErrInvalidTransition = errors.New("invalid batch status transition")
	ErrJobFrozen         = errors.New("batch job is terminal; counts are frozen")
	ErrCountOverflow     = errors.New("processed plus failed would exceed total items")
)

// BatchSettings is the settings snapshot stored with a job.
type BatchSettings struct {
	Size          int    `json:"size"`
	Format        string `json:"format"`
	ECC           string `json:"ecc"`
	NamingPattern string `json:"naming_pattern"`
	Foreground    string `json:"fg_color"`
	Background    string `json:"bg_color"`
}

// BatchJob is one bulk-processing run.
type BatchJob struct {
	ID             string        `json:"job_id"`
	SourceFilename string        `json:"source_filename"`
	TotalItems     int           `json:"total_items"`
	ProcessedItems int           `json:"processed_items"`
	FailedItems    int           `json:"failed_items"`
	Status         BatchStatus   `json:"status"`
	Settings       BatchSettings `json:"settings"`
	ArchivePath    string        `json:"archive_path,omitempty"`
	ErrorMessage   string        `json:"error,omitempty"`
	IPAddress      string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// NewBatchJob returns a pending job.
func NewBatchJob(id, source string, total int, settings BatchSettings, now time.Time) *BatchJob {
	return &BatchJob{
		ID:             id,
		SourceFilename: source,
		TotalItems:     total,
		Status:         BatchPending,
		Settings:       settings,
		CreatedAt:      now,
	}
}

// Transition moves the job to next if the status graph allows it and stamps
// the matching timestamp.
func (j *BatchJob) Transition(next BatchStatus, now time.Time) error {
	if !validTransitions[j.Status][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	switch {
	case next == BatchProcessing:
		j.StartedAt = &now
	case next.IsTerminal():
		j.CompletedAt = &now
	}
	return nil
}

// RecordItem counts one attempted item.
func (j *BatchJob) RecordItem(success bool) error {
	if j.Status.IsTerminal() {
		return ErrJobFrozen
	}
	if j.ProcessedItems+j.FailedItems >= j.TotalItems {
		return ErrCountOverflow
	}
	if success {
		j.ProcessedItems++
	} else {
		j.FailedItems++
	}
	return nil
}

// Attempted is the number of items that have been processed or failed.
func (j *BatchJob) Attempted() int {
	return j.ProcessedItems + j.FailedItems
}

// Percent is the completion percentage, rounded down.
func (j *BatchJob) Percent() int {
	if j.TotalItems == 0 {
		return 100
	}
	return j.Attempted() * 100 / j.TotalItems
}

// BatchJobStat aggregates the jobs in one status.
type BatchJobStat struct {
	Status    BatchStatus `json:"status"`
	Jobs      int64       `json:"total_jobs"`
	Items     int64       `json:"total_items"`
	Completed int64       `json:"processed_items"`
	Failed    int64       `json:"failed_items"`
}
