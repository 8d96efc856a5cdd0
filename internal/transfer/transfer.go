// Package transfer provides the byte-transfer collaborator consumed by the
// offload controller. The controller hands it a target, a config snapshot
// and a segment plan; the collaborator moves the bytes and reports back
// per-segment completion and failure through the Events callbacks.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// Segment is one unit of transfer, completion and retry tracking
type Segment struct {
	ID     string `json:"id"`
	DataID string `json:"data_id"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// Plan describes the full payload of one offload operation, chopped into
// segments of the configured size
type Plan struct {
	OperationID string    `json:"operation_id"`
	TotalBytes  int64     `json:"total_bytes"`
	Segments    []Segment `json:"segments"`
}

// Events carries the controller's event intake. The collaborator calls
// these from its own workers; the controller serializes them internally.
type Events struct {
	// SegmentCompleted reports a successfully transferred segment.
	SegmentCompleted func(segmentID string, bytes int64)

	// SegmentFailed reports a failed segment attempt. The return values
	// tell the collaborator whether to retry and after what delay.
	SegmentFailed func(segmentID string, cause error) (retry bool, delay time.Duration)

	// Finished reports that the collaborator stopped driving the
	// operation, with the terminal error if any.
	Finished func(err error)

	// Status exposes the controller state so the collaborator can observe
	// pause and cancellation cooperatively.
	Status func() models.OffloadStatus
}

// Collaborator is the byte-transfer capability the controller consumes
type Collaborator interface {
	// Plan sizes the given data ids and builds the segment plan for one
	// operation. An empty dataIDs slice means "everything eligible".
	Plan(ctx context.Context, operationID string, dataIDs []string, cfg config.OffloadConfig) (Plan, error)

	// Run drives the transfer of the planned segments to the target,
	// reporting through ev. It returns when the operation reaches a
	// terminal state or all segments are done.
	Run(ctx context.Context, target models.TargetNode, cfg config.OffloadConfig, plan Plan, ev Events)
}

// SegmentSource supplies the local bytes being offloaded. It is the narrow
// seam to the node's storage engine.
type SegmentSource interface {
	// List returns the data ids eligible for offload when the caller did
	// not name any explicitly.
	List(ctx context.Context) ([]string, error)

	// Size returns the byte size of one data id
	Size(ctx context.Context, dataID string) (int64, error)

	// Read returns size bytes of the data id starting at offset
	Read(ctx context.Context, dataID string, offset, size int64) ([]byte, error)
}

// BuildPlan chops the given data ids into segments of at most segmentSize
// bytes each, preserving data id order.
func BuildPlan(ctx context.Context, operationID string, source SegmentSource, dataIDs []string, segmentSize int64) (Plan, error) {
	if segmentSize <= 0 {
		return Plan{}, fmt.Errorf("segment size must be positive, got %d", segmentSize)
	}

	if len(dataIDs) == 0 {
		ids, err := source.List(ctx)
		if err != nil {
			return Plan{}, fmt.Errorf("failed to list offloadable data: %w", err)
		}
		dataIDs = ids
	}

	plan := Plan{OperationID: operationID}
	for _, dataID := range dataIDs {
		size, err := source.Size(ctx, dataID)
		if err != nil {
			return Plan{}, fmt.Errorf("failed to size data %s: %w", dataID, err)
		}
		plan.TotalBytes += size

		for offset := int64(0); offset < size; offset += segmentSize {
			length := segmentSize
			if remaining := size - offset; remaining < length {
				length = remaining
			}
			plan.Segments = append(plan.Segments, Segment{
				ID:     uuid.New().String(),
				DataID: dataID,
				Offset: offset,
				Size:   length,
			})
		}
	}
	return plan, nil
}
