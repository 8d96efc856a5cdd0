package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// Health reports service liveness
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	})
}
