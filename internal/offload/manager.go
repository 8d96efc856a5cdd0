package offload

import (
	"context"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// Callback types for offload lifecycle notifications. Registering a
// callback replaces the previous one; registering nil clears it.
// Callbacks are invoked outside the manager's internal lock, so they
// may call back into the manager safely.
type (
	// ProgressCallback fires on each progress update
	ProgressCallback func(progress models.OffloadProgress)

	// CompleteCallback fires once when an operation reaches a terminal state
	CompleteCallback func(result models.OffloadResult)

	// ErrorCallback fires when an operation fails
	ErrorCallback func(operationID string, err error)

	// StatusChangeCallback fires on every lifecycle transition
	StatusChangeCallback func(oldStatus, newStatus models.OffloadStatus)
)

// Manager drives the offload lifecycle of one node: target selection,
// operation control and observation. Implementations are safe for
// concurrent use.
type Manager interface {
	// Configuration
	SetConfig(cfg config.OffloadConfig) error
	Config() config.OffloadConfig

	// Target discovery and selection
	AvailableNodes(ctx context.Context) ([]models.TargetNode, error)
	RefreshNodes(ctx context.Context) bool
	SelectTargetNode(ctx context.Context, nodeID string) error
	AutoSelectTargetNode(ctx context.Context) (models.TargetNode, error)
	CurrentTarget() (models.TargetNode, bool)
	ClearTargetSelection()

	// Lifecycle control
	Start(ctx context.Context, dataIDs ...string) (string, error)
	Cancel() bool
	Pause() bool
	Resume() bool

	// Observation
	Status() models.OffloadStatus
	Progress() models.OffloadProgress
	IsActive() bool
	LastResult() (models.OffloadResult, bool)

	// Callbacks
	OnProgress(cb ProgressCallback)
	OnComplete(cb CompleteCallback)
	OnError(cb ErrorCallback)
	OnStatusChange(cb StatusChangeCallback)
}
