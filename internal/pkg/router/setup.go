package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/admin"
	"github.com/iiskills-cloud/appaccess/internal/pkg/payments"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the services the HTTP surface calls into.
type Dependencies struct {
	Store         *access.Store
	Admin         *admin.Service
	Payments      *payments.Service
	AdminKey      string
	WebhookSecret string

	// LimiterStorage is optional. Nil keeps limiter counters in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// HttpRouter installs the UserContext and metrics middleware the API
	// routes rely on, so it goes first.
	setup(app, NewHttpRouter(), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
