package service

import (
	"errors"

	"qrforge/internal/database"
	"qrforge/internal/payload"
)

// Error taxonomy shared by the generation, batch and cleanup paths. The HTTP
// layer maps each to a status code and a machine-readable category.
var (
	ErrEmptyPayload       = payload.ErrEmptyPayload
	ErrInvalidInput       = errors.New("invalid input")
	ErrEncodingFailure    = errors.New("encoding failure")
	ErrStorageFailure     = errors.New("storage failure")
	ErrBackendUnavailable = database.ErrBackendUnavailable
	ErrPartialSweep       = errors.New("partial sweep failure")
	ErrNotFound           = errors.New("not found")
	ErrIDRequired         = errors.New("id is required")
)
