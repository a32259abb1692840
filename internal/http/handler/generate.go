package handler

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"qrforge/internal/service"
)

// generateResponse is the body of a successful generation.
type generateResponse struct {
	Success        bool    `json:"success"`
	ID             string  `json:"id"`
	Filename       string  `json:"filename"`
	URL            string  `json:"url"`
	Size           int64   `json:"size"`
	Format         string  `json:"format"`
	Data           string  `json:"data"`
	Type           string  `json:"type"`
	Message        string  `json:"message"`
	ProcessingTime float64 `json:"processing_time"`
}

// GenerateQR encodes, renders and stores one code.
//
//	@Summary	Generate a QR code
//	@Tags		generate
//	@Accept		json
//	@Produce	json
//	@Param		request	body		service.GenerateRequest	true	"payload and style"
//	@Success	200		{object}	generateResponse
//	@Failure	400		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/api/generate [post]
func GenerateQR(gen service.Generator, baseURL string, log logrus.FieldLogger) fiber.Handler {
	baseURL = strings.TrimRight(baseURL, "/")
	return func(c *fiber.Ctx) error {
		var req service.GenerateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "request body must be a JSON object")
		}
		req.IPAddress = c.IP()
		req.UserAgent = c.Get(fiber.HeaderUserAgent)
		req.Referrer = c.Get(fiber.HeaderReferer)

		res, err := gen.Generate(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, log, err)
		}

		a := res.Artifact
		return c.JSON(generateResponse{
			Success:        true,
			ID:             a.ID,
			Filename:       a.Filename,
			URL:            baseURL + "/files/" + a.Filename,
			Size:           a.FileSize,
			Format:         a.Format,
			Data:           a.Payload,
			Type:           a.DataType,
			Message:        "QR code generated successfully",
			ProcessingTime: math.Round(res.ProcessingTime.Seconds()*1000) / 1000,
		})
	}
}
