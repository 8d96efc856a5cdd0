package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// APIKeyAuth validates the X-API-Key header against the configured key
// set. When auth is disabled the middleware passes every request through.
func APIKeyAuth(cfg config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled {
			return c.Next()
		}

		key := c.Get("X-API-Key")
		if key == "" {
			return unauthorized(c, "missing API key")
		}
		for _, allowed := range cfg.APIKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(allowed)) == 1 {
				return c.Next()
			}
		}
		return unauthorized(c, "invalid API key")
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: msg,
			Path:    c.Path(),
		},
	})
}
