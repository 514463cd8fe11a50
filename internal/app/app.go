package app

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hanulsoft/blogpilot/internal/api/v1/handlers"
	"github.com/hanulsoft/blogpilot/internal/api/v1/middleware"
	v1 "github.com/hanulsoft/blogpilot/internal/api/v1/routes"
	"github.com/hanulsoft/blogpilot/internal/services"
)

// NewApp builds the HTTP server serving the posting job API
func NewApp(runner *services.JobRunner, topics *handlers.TopicHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "blogpilot",
	})

	app.Use(middleware.Logger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Register versioned routes
	v1.Register(app, handlers.NewJobHandler(runner), topics)

	return app
}
