package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qrforge/internal/model"
	"qrforge/internal/repository"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLog records operator actions.
type AuditLog interface {
	// Record appends entry. A failed write is logged and never fails the
	// admin action it describes.
	Record(ctx context.Context, entry *model.AdminLog) BestEffort
	// Recent returns the newest entries; limit is clamped to [1, 500] and
	// defaults to 50.
	Recent(ctx context.Context, limit int) ([]model.AdminLog, error)
}

type auditLog struct {
	repo repository.AdminLogRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewAuditLog(repo repository.AdminLogRepository, log logrus.FieldLogger) AuditLog {
	return &auditLog{
		repo: repo,
		log:  log.WithField("component", "audit"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (a *auditLog) Record(ctx context.Context, entry *model.AdminLog) BestEffort {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}
	return bestEffort(a.log, "admin_log", a.repo.Insert(ctx, entry))
}

func (a *auditLog) Recent(ctx context.Context, limit int) ([]model.AdminLog, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, maxAuditLimit)
	return a.repo.Recent(ctx, limit)
}
