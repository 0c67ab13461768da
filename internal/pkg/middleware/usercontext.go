package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iiskills-cloud/appaccess/internal/pkg/usercontext"
)

const maxUserIDLength = 191

// UserContextMiddleware sets up the user context for every request from the
// X-User-ID header set by the trusted upstream web app. A missing or
// oversized header yields an anonymous caller.
func UserContextMiddleware(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Get(usercontext.HeaderUserID))
	if len(userID) > maxUserIDLength {
		userID = ""
	}

	userCtx := usercontext.UserContext{
		UserID:     userID,
		IsLoggedIn: userID != "",
	}
	c.Locals(usercontext.KeyUserContext, userCtx)
	c.Locals(usercontext.KeyUserID, userID)

	return c.Next()
}

// RequireUser answers 401 for anonymous callers.
func RequireUser(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
