package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// Auth requires "Authorization: Bearer <apiKey>". An empty apiKey disables
// the check, which is the default on a device-local install.
func Auth(apiKey string) fiber.Handler {
	if apiKey == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	want := hashAPIKey(apiKey)
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return domain.ErrUnauthorized
		}

		got := hashAPIKey(token)
		if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
			return domain.ErrUnauthorized
		}

		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// hashAPIKey gives both sides of the comparison the same length.
func hashAPIKey(apiKey string) [sha256.Size]byte {
	return sha256.Sum256([]byte(apiKey))
}
