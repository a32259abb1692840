package handler

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qrforge/internal/model"
	"qrforge/internal/repository"
	"qrforge/internal/service"
)

// AdminAuth guards the admin group with "Authorization: Bearer <token>".
// An empty token disables the group.
func AdminAuth(token string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if token == "" || subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return writeError(c, fiber.StatusUnauthorized, CodeUnauthorized, "missing or invalid credentials")
		},
	})
}

// parseWindow reads a retention window as a Go duration ("72h") or whole
// seconds ("3600").
func parseWindow(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// recordAdmin appends an audit entry for the current request. The result is
// best-effort and already logged on failure.
func recordAdmin(c *fiber.Ctx, audit service.AuditLog, action model.AdminAction, details string) {
	audit.Record(c.UserContext(), &model.AdminLog{
		Action:    action,
		Details:   details,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
}

// RunCleanup runs one sweep now. A partial sweep still answers 200 with its
// counts and success=false.
func RunCleanup(cleaner service.Cleaner, audit service.AuditLog, defaultWindow time.Duration, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		window := defaultWindow
		if v := c.Query("window"); v != "" {
			d, err := parseWindow(v)
			if err != nil || d <= 0 {
				return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "window must be a positive duration")
			}
			window = d
		}

		res, err := cleaner.Sweep(c.UserContext(), window)
		if err != nil && !errors.Is(err, service.ErrPartialSweep) {
			return writeServiceError(c, log, err)
		}
		recordAdmin(c, audit, model.AdminCleanup, fmt.Sprintf(
			"window=%s files=%d batch_files=%d artifacts=%d analytics=%d batch_jobs=%d partial=%t",
			window, res.FilesDeleted, res.BatchFilesDeleted, res.ArtifactsDeleted,
			res.AnalyticsDeleted, res.BatchJobsDeleted, res.Partial))
		return c.JSON(fiber.Map{"success": err == nil, "result": res})
	}
}

// ListArtifacts pages through every artifact, expired ones included.
func ListArtifacts(artifacts service.ArtifactStore, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := artifacts.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}

// DeleteArtifact removes an artifact's content and metadata.
func DeleteArtifact(artifacts service.ArtifactStore, audit service.AuditLog, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := artifacts.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, log, err)
		}
		recordAdmin(c, audit, model.AdminDeleteArtifact, "artifact "+id)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AdminLogs lists the newest audit entries (?limit=, default 50).
func AdminLogs(audit service.AuditLog, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "50"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		entries, err := audit.Recent(c.UserContext(), limit)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true, "logs": entries})
	}
}

// AdminStatus reports the metadata backend in use and usage statistics for
// the last "since" window (default 24h), batch jobs grouped by status
// included.
func AdminStatus(meta repository.MetadataStore, degraded bool, artifacts service.ArtifactStore, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		window := 24 * time.Hour
		if v := c.Query("since"); v != "" {
			d, err := parseWindow(v)
			if err != nil || d <= 0 {
				return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "since must be a positive duration")
			}
			window = d
		}

		stats, err := artifacts.Stats(c.UserContext(), time.Now().UTC().Add(-window))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"backend":  meta.Kind().String(),
			"degraded": degraded,
			"stats":    stats,
		})
	}
}
