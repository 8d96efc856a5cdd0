package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/offload"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/selector"
)

// Version is the service version reported by the health endpoint
const Version = "1.0.0"

// Handler exposes the offload control surface over HTTP
type Handler struct {
	manager offload.Manager
	logger  *logging.Logger
}

// NewHandler creates the HTTP handler around the given manager
func NewHandler(manager offload.Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Global()
	}
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes mounts all endpoints on the app
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	v1.Get("/nodes", h.ListNodes)
	v1.Post("/nodes/refresh", h.RefreshNodes)

	v1.Get("/target", h.GetTarget)
	v1.Post("/target/auto", h.AutoSelectTarget)
	v1.Post("/target/:nodeID", h.SelectTarget)
	v1.Delete("/target", h.ClearTarget)

	v1.Post("/offload/start", h.Start)
	v1.Post("/offload/cancel", h.Cancel)
	v1.Post("/offload/pause", h.Pause)
	v1.Post("/offload/resume", h.Resume)

	v1.Get("/offload/status", h.GetStatus)
	v1.Get("/offload/progress", h.GetProgress)
	v1.Get("/offload/result", h.GetResult)

	v1.Get("/config", h.GetConfig)
	v1.Put("/config", h.PutConfig)
}

// fail maps domain errors onto HTTP error responses
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	code := "INTERNAL"
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, selector.ErrNodeNotFound):
		code, status = "NODE_NOT_FOUND", fiber.StatusNotFound
	case errors.Is(err, selector.ErrNodeNotEligible):
		code, status = "NODE_NOT_ELIGIBLE", fiber.StatusConflict
	case errors.Is(err, selector.ErrNoEligibleNode):
		code, status = "NO_ELIGIBLE_NODE", fiber.StatusConflict
	case errors.Is(err, offload.ErrNoTargetSelected):
		code, status = "NO_TARGET_SELECTED", fiber.StatusConflict
	case errors.Is(err, offload.ErrOperationInProgress):
		code, status = "OPERATION_IN_PROGRESS", fiber.StatusConflict
	case errors.Is(err, offload.ErrNoActiveOperation):
		code, status = "NO_ACTIVE_OPERATION", fiber.StatusConflict
	case errors.Is(err, offload.ErrInvalidState):
		code, status = "INVALID_STATE", fiber.StatusConflict
	case errors.Is(err, offload.ErrNoData):
		code, status = "NO_DATA", fiber.StatusBadRequest
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Path:    c.Path(),
		},
	})
}
