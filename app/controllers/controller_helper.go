package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
)

var validate = validator.New()

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// handleError maps domain errors onto HTTP responses. Storage failures are
// logged with the operation name and answered with 503.
func handleError(c *fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrUnknownApp), errors.Is(err, catalog.ErrUnknownBundle):
		return jsonError(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, access.ErrFreeApp):
		return jsonError(c, fiber.StatusUnprocessableEntity, "free_app", err.Error())
	case errors.Is(err, access.ErrInvalidInput):
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, access.ErrStorageUnavailable):
		fiberlog.Errorf("%s: %v", op, err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Access storage is temporarily unavailable")
	default:
		fiberlog.Errorf("%s: %v", op, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Unexpected error")
	}
}

// parseBody decodes and validates a JSON request body into v. When it
// reports false the error response has already been written.
func parseBody(c *fiber.Ctx, v interface{}) (bool, error) {
	if err := c.BodyParser(v); err != nil {
		return false, jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return false, jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	return true, nil
}
