package events

import (
	"context"
	"time"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// Event kinds emitted over the lifecycle of an offload operation
const (
	KindStatusChanged = "status_changed"
	KindProgress      = "progress"
	KindCompleted     = "completed"
	KindFailed        = "failed"
)

// OffloadEvent is the wire form of a lifecycle notification. Consumers
// subscribe to the broker configured for the deployment; the controller
// only ever publishes.
type OffloadEvent struct {
	Kind            string               `json:"kind"`
	OperationID     string               `json:"operation_id"`
	NodeID          string               `json:"node_id"`
	TargetNodeID    string               `json:"target_node_id,omitempty"`
	Status          models.OffloadStatus `json:"status,omitempty"`
	PreviousStatus  models.OffloadStatus `json:"previous_status,omitempty"`
	ProgressPercent float64              `json:"progress_percent,omitempty"`
	Error           string               `json:"error,omitempty"`
	Timestamp       time.Time            `json:"timestamp"`
}

// Subject returns the broker subject the event is published on
func (e *OffloadEvent) Subject() string {
	return "redcomponent.offload." + e.Kind
}

// Publisher pushes offload lifecycle events to an external broker
type Publisher interface {
	Publish(ctx context.Context, event OffloadEvent) error
	Close() error
}
