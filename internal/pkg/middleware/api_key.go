package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/iiskills-cloud/appaccess/internal/pkg/usercontext"
)

// AdminKeyMiddleware guards admin routes with a shared key sent as
// X-Admin-Key or a bearer token. configured may be the key itself or its
// bcrypt hash.
func AdminKeyMiddleware(configured string) fiber.Handler {
	configured = strings.TrimSpace(configured)
	hashed := isBcryptHash(configured)

	return func(c *fiber.Ctx) error {
		key := extractAdminKey(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin key"})
		}
		if configured == "" || !matchKey(configured, key, hashed) {
			fiberlog.Warnf("admin key rejected from %s", c.IP())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Invalid admin key"})
		}

		userCtx := usercontext.GetUserContext(c)
		userCtx.IsAdmin = true
		c.Locals(usercontext.KeyUserContext, userCtx)
		c.Locals(usercontext.KeyIsAdmin, true)

		return c.Next()
	}
}

func matchKey(configured, presented string, hashed bool) bool {
	if hashed {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

func extractAdminKey(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.Get(usercontext.HeaderAdminKey))
	if key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
