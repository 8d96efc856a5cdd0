package offload

import "errors"

// Sentinel errors returned by lifecycle and selection operations.
// Handlers map these onto HTTP status codes; callers can match them
// with errors.Is.
var (
	// ErrNoTargetSelected is returned by Start when no target node has
	// been selected
	ErrNoTargetSelected = errors.New("no target node selected")

	// ErrOperationInProgress is returned by Start while another
	// operation is active, including paused
	ErrOperationInProgress = errors.New("offload operation already in progress")

	// ErrNoActiveOperation is returned by Pause, Resume and Cancel when
	// nothing is running
	ErrNoActiveOperation = errors.New("no active offload operation")

	// ErrInvalidState is returned when a command is not legal in the
	// current lifecycle state
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrNoData is returned by Start when there is nothing to offload
	ErrNoData = errors.New("no data selected for offload")
)
