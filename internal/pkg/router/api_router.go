package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/iiskills-cloud/appaccess/app/controllers"
	"github.com/iiskills-cloud/appaccess/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	accessController := controllers.NewAccessController(h.deps.Store)
	paymentController := controllers.NewPaymentController(h.deps.Payments, h.deps.WebhookSecret)
	adminController := controllers.NewAdminController(h.deps.Admin)

	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Page guards call these on every navigation, so they stay unthrottled.
	v1.Get("/apps", accessController.HandleListApps)
	v1.Get("/bundles", accessController.HandleListBundles)
	v1.Get("/access/:appID", accessController.HandleCheckAccess)
	v1.Get("/me/apps", accessController.HandleMyApps)
	v1.Get("/me/access", accessController.HandleMyAccess)

	throttle := limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
	})

	v1.Post("/payments/confirm", throttle, paymentController.HandleConfirm)

	adminGroup := v1.Group("/admin", throttle, middleware.AdminKeyMiddleware(h.deps.AdminKey))
	adminGroup.Get("/dashboard", adminController.HandleDashboard)
	adminGroup.Get("/stats", adminController.HandleStats)
	adminGroup.Post("/grants", adminController.HandleGrant)
	adminGroup.Delete("/grants/:userID/:appID", adminController.HandleRevoke)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
