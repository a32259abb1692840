package model

import "time"

// EventType classifies an analytics event.
type EventType string

const (
	EventGenerate EventType = "generate"
	EventAccess   EventType = "access"
	EventDownload EventType = "download"
	EventBatch    EventType = "batch"
)

// AnalyticsEvent is an append-only record of a generation, access or download.
// ArtifactID is empty when the event is not tied to a single artifact.
type AnalyticsEvent struct {
	ID             string        `json:"id"`
	ArtifactID     string        `json:"qr_id,omitempty"`
	EventType      EventType     `json:"event_type"`
	DataType       string        `json:"data_type,omitempty"`
	Size           int           `json:"size,omitempty"`
	Format         string        `json:"format,omitempty"`
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
	IPAddress      string        `json:"-"`
	UserAgent      string        `json:"-"`
	Referrer       string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
}
