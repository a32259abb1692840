package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"qrforge/internal/http/middleware"
	"qrforge/internal/model"
	"qrforge/internal/service"
)

// ListPresets returns every style preset.
func ListPresets(presets service.PresetService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := presets.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true, "presets": list})
	}
}

// GetSettings returns the defaults of the caller's session.
func GetSettings(settings service.SettingsService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		us, err := settings.Get(c.UserContext(), middleware.SessionID(c))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(us)
	}
}

// SaveSettings replaces the defaults of the caller's session.
func SaveSettings(settings service.SettingsService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var us model.UserSettings
		if err := c.BodyParser(&us); err != nil {
			return writeError(c, fiber.StatusBadRequest, CodeInvalidInput, "request body must be a JSON object")
		}
		us.SessionID = middleware.SessionID(c)

		saved, err := settings.Save(c.UserContext(), &us)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(saved)
	}
}
