// Package server exposes the study pipeline as a JSON API.
package server

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"study-assistant/internal/config"
)

// Model calls run synchronously inside a request, so timeouts are generous.
const (
	bodyLimit    = 32 << 20
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Minute
)

// New builds the app with global middleware, the health check and the
// document routes.
func New(cfg *config.Config, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.AppName,
		BodyLimit:    bodyLimit,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"app":      cfg.Server.AppName,
			"sessions": h.store.Len(),
		})
	})

	h.Register(app.Group("/api/v1"))
	return app
}
