package router

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

const (
	DocsBasePath = "/docs/api/"
	DocsVersion  = "v1"
)

// InstallDocs serves Swagger UI for the OpenAPI document at openAPIFile under
// /docs/api/v1. swagger.New panics when the file cannot be read.
func InstallDocs(app *fiber.App, openAPIFile string) {
	openAPICfg := swagger.Config{
		BasePath: DocsBasePath,
		FilePath: openAPIFile,
		Path:     DocsVersion,
	}
	app.Use(swagger.New(openAPICfg))
}
