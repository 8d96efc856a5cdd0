package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// GetConfig returns the current offload configuration
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	return c.JSON(h.manager.Config())
}

// PutConfig replaces the offload configuration. Fields omitted from the
// body keep their current values.
func (h *Handler) PutConfig(c *fiber.Ctx) error {
	cfg := h.manager.Config()
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "BAD_REQUEST",
				Message: "invalid request body",
				Path:    c.Path(),
			},
		})
	}
	if err := h.manager.SetConfig(cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_CONFIG",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}
	return c.JSON(h.manager.Config())
}
