package model

import "time"

// AdminAction names an operator action recorded in the audit log.
type AdminAction string

const (
	AdminCleanup        AdminAction = "cleanup"
	AdminDeleteArtifact AdminAction = "delete_artifact"
)

// AdminLog is one audit log entry. Details is free text such as the
// affected artifact id or the sweep counts.
type AdminLog struct {
	ID        string      `json:"id"`
	Action    AdminAction `json:"action"`
	Details   string      `json:"details,omitempty"`
	IPAddress string      `json:"ip_address,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
