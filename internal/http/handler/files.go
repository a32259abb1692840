package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qrforge/internal/config"
	"qrforge/internal/model"
	"qrforge/internal/service"
	"qrforge/internal/storage"
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"svg":  "image/svg+xml",
}

// ServeFile streams a non-expired artifact, or redirects to a presigned URL
// when the storage backend supports one. "?download=1" asks for an
// attachment and is logged as a download instead of an access.
func ServeFile(artifacts service.ArtifactStore, cfg config.StorageConfig, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename := c.Params("filename")
		download := c.QueryBool("download")
		ctx := c.UserContext()

		event := &model.AnalyticsEvent{
			EventType: model.EventAccess,
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Referrer:  c.Get(fiber.HeaderReferer),
		}
		if download {
			event.EventType = model.EventDownload
		}
		track := func(a *model.Artifact) {
			event.ArtifactID = a.ID
			event.DataType = a.DataType
			event.Size = a.Size
			event.Format = a.Format
			artifacts.RecordAccess(ctx, a.ID)
			artifacts.LogEvent(ctx, event)
		}

		if cfg.PresignDownloads {
			a, err := artifacts.GetByFilename(ctx, filename)
			if err != nil {
				return writeServiceError(c, log, err)
			}
			url, err := artifacts.PresignURL(ctx, a, cfg.PresignExpiry)
			switch {
			case err == nil:
				track(a)
				return c.Redirect(url, fiber.StatusFound)
			case !errors.Is(err, storage.ErrPresignUnsupported):
				return writeServiceError(c, log, fmt.Errorf("%w: presign: %v", service.ErrStorageFailure, err))
			}
		}

		rc, a, err := artifacts.Open(ctx, filename)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		track(a)

		ct, ok := contentTypes[a.Format]
		if !ok {
			ct = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", maxAge(a.ExpiresAt)))
		if download {
			c.Attachment(a.Filename)
		}
		size := int(a.FileSize)
		if size <= 0 {
			size = -1
		}
		return c.SendStream(rc, size)
	}
}

// maxAge is the number of whole seconds until expiresAt, never negative.
func maxAge(expiresAt time.Time) int {
	return max(int(time.Until(expiresAt).Seconds()), 0)
}

// GetArtifact returns the metadata of a non-expired artifact.
func GetArtifact(artifacts service.ArtifactStore, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		a, err := artifacts.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(a)
	}
}
