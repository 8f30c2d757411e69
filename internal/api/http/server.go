package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-insights/internal/logger"
)

const (
	serviceName   = "weather-insights"
	healthTimeout = 2 * time.Second
)

// NewApp builds the Fiber app with middleware, health check and API routes.
func NewApp(deps Dependencies, log *logger.Logger) *fiber.App {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          time.Minute,
		ErrorHandler:          ErrorHandler(log),
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Store != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
			defer cancel()
			if err := deps.Store.Ping(ctx); err != nil {
				log.Warn("store ping failed", logger.Err(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "unavailable",
					"service": serviceName,
					"store":   err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	RegisterRoutes(app, deps)
	return app
}
