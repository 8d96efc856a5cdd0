package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// ListNodes returns the nodes currently known as offload candidates
func (h *Handler) ListNodes(c *fiber.Ctx) error {
	nodes, err := h.manager.AvailableNodes(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(models.NodeListResponse{Nodes: nodes, Count: len(nodes)})
}

// RefreshNodes forces a registry refresh
func (h *Handler) RefreshNodes(c *fiber.Ctx) error {
	ok := h.manager.RefreshNodes(c.Context())
	if !ok {
		return c.Status(fiber.StatusBadGateway).JSON(models.CommandResponse{
			OK:    false,
			Error: "node registry refresh failed",
		})
	}
	return c.JSON(models.CommandResponse{OK: true})
}

// SelectTarget selects a specific node as offload target
func (h *Handler) SelectTarget(c *fiber.Ctx) error {
	nodeID := c.Params("nodeID")
	if err := h.manager.SelectTargetNode(c.Context(), nodeID); err != nil {
		return h.fail(c, err)
	}
	target, _ := h.manager.CurrentTarget()
	return c.JSON(target)
}

// AutoSelectTarget picks the best eligible node automatically
func (h *Handler) AutoSelectTarget(c *fiber.Ctx) error {
	node, err := h.manager.AutoSelectTargetNode(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(node)
}

// GetTarget returns the currently selected target node
func (h *Handler) GetTarget(c *fiber.Ctx) error {
	target, ok := h.manager.CurrentTarget()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NO_TARGET_SELECTED",
				Message: "no target node selected",
				Path:    c.Path(),
			},
		})
	}
	return c.JSON(target)
}

// ClearTarget drops the target selection
func (h *Handler) ClearTarget(c *fiber.Ctx) error {
	h.manager.ClearTargetSelection()
	return c.JSON(models.CommandResponse{OK: true})
}
