package model

import "time"

// Artifact is one generated, styled and persisted QR code.
// This is a pure domain model with no database-specific dependencies or tags.
type Artifact struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	StoragePath  string            `json:"storage_path"`
	DataType     string            `json:"type"`
	OriginalData map[string]string `json:"original_data,omitempty"`
	Payload      string            `json:"data"`
	Size         int               `json:"size"`
	FileSize     int64             `json:"file_size"`
	Foreground   string            `json:"fg_color"`
	Background   string            `json:"bg_color"`
	Format       string            `json:"format"`
	ECC          string            `json:"ecc"`
	Template     string            `json:"template"`
	DotStyle     string            `json:"dot_style"`
	CornerStyle  string            `json:"corner_style"`
	HasLogo      bool              `json:"has_logo"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	AccessCount  int64             `json:"access_count"`
	IPAddress    string            `json:"-"`
	UserAgent    string            `json:"-"`
}

// IsExpired reports whether the artifact is past its expiration at now.
func (a *Artifact) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// ArtifactStat is one row of the per-type generation statistics.
type ArtifactStat struct {
	DataType      string `json:"type"`
	Format        string `json:"format"`
	Generated     int64  `json:"total_generated"`
	TotalAccessed int64  `json:"total_accessed"`
}
