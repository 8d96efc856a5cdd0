package models

import "time"

// OffloadStatus represents the lifecycle state of an offload operation
type OffloadStatus string

const (
	StatusIdle         OffloadStatus = "idle"
	StatusPreparing    OffloadStatus = "preparing"
	StatusTransferring OffloadStatus = "transferring"
	StatusCompleting   OffloadStatus = "completing"
	StatusCompleted    OffloadStatus = "completed"
	StatusFailed       OffloadStatus = "failed"
	StatusCancelled    OffloadStatus = "cancelled"
	StatusPaused       OffloadStatus = "paused"
)

// IsActive reports whether the status describes an operation in progress.
// Paused counts as active: the operation holds a target and partial progress.
func (s OffloadStatus) IsActive() bool {
	switch s {
	case StatusPreparing, StatusTransferring, StatusCompleting, StatusPaused:
		return true
	}
	return false
}

// IsTerminal reports whether the status is a terminal state
func (s OffloadStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// OffloadProgress holds the byte/segment counters and derived transfer
// metrics of one offload operation. The invariants
// PendingBytes = TotalBytes - TransferredBytes and
// SegmentsPending = SegmentsTotal - SegmentsCompleted hold after every update.
type OffloadProgress struct {
	// Byte progress
	TotalBytes       int64 `json:"total_bytes"`
	TransferredBytes int64 `json:"transferred_bytes"`
	PendingBytes     int64 `json:"pending_bytes"`

	// Segment progress
	SegmentsTotal     int64 `json:"segments_total"`
	SegmentsCompleted int64 `json:"segments_completed"`
	SegmentsFailed    int64 `json:"segments_failed"`
	SegmentsPending   int64 `json:"segments_pending"`

	// Timing
	StartTime  time.Time     `json:"start_time"`
	LastUpdate time.Time     `json:"last_update"`
	Elapsed    time.Duration `json:"elapsed"`

	// Transfer rate
	BytesPerSecond        float64 `json:"bytes_per_second"`         // Instantaneous rate (latest segment)
	AverageBytesPerSecond float64 `json:"average_bytes_per_second"` // Average over the whole operation

	// Status
	ErrorMessage     string `json:"error_message,omitempty"`
	CurrentSegmentID string `json:"current_segment_id,omitempty"`
}

// ProgressPercent returns completion in [0, 100].
// A zero-byte operation reports 0, not 100.
func (p OffloadProgress) ProgressPercent() float64 {
	if p.TotalBytes == 0 {
		return 0.0
	}
	return 100.0 * float64(p.TransferredBytes) / float64(p.TotalBytes)
}

// EstimatedTimeRemaining returns the ETA derived from pending bytes and
// average throughput, rounded down to whole seconds. Zero when throughput
// is non-positive or nothing is pending.
func (p OffloadProgress) EstimatedTimeRemaining() time.Duration {
	if p.AverageBytesPerSecond <= 0 || p.PendingBytes <= 0 {
		return 0
	}
	return time.Duration(float64(p.PendingBytes)/p.AverageBytesPerSecond) * time.Second
}

// CompletedSuccessfully reports whether all segments completed,
// at least one segment existed, and no error was recorded.
func (p OffloadProgress) CompletedSuccessfully() bool {
	return p.SegmentsCompleted == p.SegmentsTotal &&
		p.SegmentsTotal > 0 &&
		p.ErrorMessage == ""
}

// OffloadResult is the immutable terminal snapshot of one offload operation
type OffloadResult struct {
	OperationID   string          `json:"operation_id"`
	Success       bool            `json:"success"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	FinalProgress OffloadProgress `json:"final_progress"`
	TargetNode    TargetNode      `json:"target_node"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// Duration returns how long the offload operation ran
func (r OffloadResult) Duration() time.Duration {
	return r.FinalProgress.Elapsed
}
