package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qrforge/internal/batch"
	"qrforge/internal/model"
	"qrforge/internal/service"
)

type batchAccepted struct {
	Success bool              `json:"success"`
	JobID   string            `json:"job_id"`
	Status  model.BatchStatus `json:"status"`
	Total   int               `json:"total_items"`
}

type batchCompleted struct {
	Success bool `json:"success"`
	*batch.Result
}

// SubmitBatch accepts a multipart CSV upload ("file") with optional style
// fields. The job runs in the background and 202 is returned, unless
// sync=true asks for the finished result.
func SubmitBatch(batches service.BatchService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "file is required")
		}

		req := service.BatchRequest{
			SourceName: fh.Filename,
			Format:     c.FormValue("format"),
			ECC:        c.FormValue("ecc"),
			Naming:     c.FormValue("naming"),
			Foreground: c.FormValue("fg_color"),
			Background: c.FormValue("bg_color"),
			IPAddress:  c.IP(),
		}
		if v := c.FormValue("size"); v != "" {
			if req.Size, err = strconv.Atoi(v); err != nil {
				return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "size must be an integer")
			}
		}
		sync, _ := strconv.ParseBool(c.FormValue("sync", "false"))

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "cannot open uploaded file")
		}
		defer f.Close()

		rows, err := batches.ParseRows(f)
		if err != nil {
			return writeServiceError(c, log, err)
		}

		if sync {
			res, err := batches.RunSync(c.UserContext(), req, rows)
			if err != nil {
				return writeServiceError(c, log, err)
			}
			return c.JSON(batchCompleted{Success: res.Status == model.BatchCompleted, Result: res})
		}

		job, err := batches.Submit(c.UserContext(), req, rows)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(batchAccepted{
			Success: true,
			JobID:   job.ID,
			Status:  job.Status,
			Total:   job.TotalItems,
		})
	}
}

// BatchStatus reports a job with its progress and, when known, per-item results.
func BatchStatus(batches service.BatchService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		st, err := batches.Status(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(st)
	}
}

// BatchArchive streams the zip of a completed job.
func BatchArchive(batches service.BatchService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, job, err := batches.Archive(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		c.Attachment("qr_batch_" + job.ID + ".zip")
		return c.SendStream(rc)
	}
}
