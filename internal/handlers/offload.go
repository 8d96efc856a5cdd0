package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/offload"
)

// Start begins an offload operation for the requested data ids
func (h *Handler) Start(c *fiber.Ctx) error {
	var req models.StartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "BAD_REQUEST",
					Message: "invalid request body",
					Path:    c.Path(),
				},
			})
		}
	}

	opID, err := h.manager.Start(c.Context(), req.DataIDs...)
	if err != nil {
		return h.fail(c, err)
	}

	h.logger.Info("Offload started via API", "operation_id", opID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"operation_id": opID,
		"status":       h.manager.Status(),
	})
}

// Cancel aborts the active operation
func (h *Handler) Cancel(c *fiber.Ctx) error {
	if !h.manager.Cancel() {
		return h.fail(c, offload.ErrNoActiveOperation)
	}
	return c.JSON(models.CommandResponse{OK: true})
}

// Pause suspends the active transfer
func (h *Handler) Pause(c *fiber.Ctx) error {
	if !h.manager.Pause() {
		return h.fail(c, offload.ErrInvalidState)
	}
	return c.JSON(models.CommandResponse{OK: true})
}

// Resume continues a paused transfer
func (h *Handler) Resume(c *fiber.Ctx) error {
	if !h.manager.Resume() {
		return h.fail(c, offload.ErrInvalidState)
	}
	return c.JSON(models.CommandResponse{OK: true})
}

// GetStatus returns the lifecycle state
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	resp := models.StatusResponse{
		Status: h.manager.Status(),
		Active: h.manager.IsActive(),
	}
	if target, ok := h.manager.CurrentTarget(); ok {
		resp.TargetID = target.NodeID
	}
	return c.JSON(resp)
}

// GetProgress returns the progress snapshot of the current operation
func (h *Handler) GetProgress(c *fiber.Ctx) error {
	progress := h.manager.Progress()
	return c.JSON(fiber.Map{
		"progress":                 progress,
		"progress_percent":         progress.ProgressPercent(),
		"estimated_time_remaining": progress.EstimatedTimeRemaining().String(),
	})
}

// GetResult returns the result of the most recently finished operation
func (h *Handler) GetResult(c *fiber.Ctx) error {
	result, ok := h.manager.LastResult()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NO_RESULT",
				Message: "no finished offload operation",
				Path:    c.Path(),
			},
		})
	}
	return c.JSON(result)
}
