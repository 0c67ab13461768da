package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/iiskills-cloud/appaccess/internal/pkg/metrics"
	"github.com/iiskills-cloud/appaccess/internal/pkg/middleware"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Use(metrics.Middleware())

	// Apply UserContext middleware globally
	app.Use(middleware.UserContextMiddleware)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
