package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/weather"
)

// StatusFor maps an error to the HTTP status the API answers with.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case weather.IsValidation(err):
		return fiber.StatusBadRequest
	case weather.IsNotFound(err):
		return fiber.StatusNotFound
	case weather.IsUpstreamUnavailable(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		msg := err.Error()
		if code >= fiber.StatusInternalServerError && code != fiber.StatusBadGateway && code != fiber.StatusServiceUnavailable {
			log.Error("request failed", zap.String("method", c.Method()), zap.String("path", c.Path()), logger.Err(err))
			msg = "internal server error"
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": msg,
		})
	}
}
