package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"qrforge/internal/http/middleware"
	"qrforge/internal/service"
)

// Error categories returned in the "error" field.
const (
	CodeEmptyPayload       = "EMPTY_PAYLOAD"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeEncodingFailure    = "ENCODING_FAILURE"
	CodeStorageFailure     = "STORAGE_FAILURE"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// errorPayload is the body of every failed request.
type errorPayload struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Details   string `json:"details"`
	RequestID string `json:"request_id,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes the standard failure body. details must be safe to show
// to the caller: no internal errors and no payload contents.
func writeError(c *fiber.Ctx, status int, code, details string) error {
	return c.Status(status).JSON(errorPayload{
		Success:   false,
		Error:     code,
		Details:   details,
		RequestID: requestIDFromCtx(c),
	})
}

// writeServiceError maps the service error taxonomy onto HTTP. Client errors
// carry the service message; server errors are logged and answered with a
// fixed message.
func writeServiceError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyPayload):
		return writeError(c, fiber.StatusBadRequest, CodeEmptyPayload, err.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, service.ErrEncodingFailure):
		return writeError(c, fiber.StatusBadRequest, CodeEncodingFailure, "payload could not be encoded")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, CodeNotFound, "resource not found")
	}

	code := CodeInternal
	switch {
	case errors.Is(err, service.ErrBackendUnavailable):
		code = CodeBackendUnavailable
	case errors.Is(err, service.ErrStorageFailure):
		code = CodeStorageFailure
	}
	log.WithFields(logrus.Fields{
		"component":     "http",
		"request_id":    requestIDFromCtx(c),
		"path":          c.Path(),
		"error":         code,
		"error_message": err.Error(),
	}).Error("request failed")
	return writeError(c, fiber.StatusInternalServerError, code, "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, CodeInvalidInput, "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, CodeUnauthorized, "missing or invalid credentials")
		case fiber.StatusNotFound:
			return writeError(c, status, CodeNotFound, "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, CodeInvalidInput, "request body too large")
		default:
			return writeError(c, status, CodeInternal, "internal server error")
		}
	}
}
