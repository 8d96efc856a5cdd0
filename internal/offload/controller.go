package offload

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/events"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/registry"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/selector"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/transfer"
)

// notifier collects callback and event work accumulated while the
// controller lock is held and runs it after the lock is released, so
// callbacks can call back into the controller without deadlocking.
type notifier struct {
	fns []func()
}

func (n *notifier) add(fn func()) {
	n.fns = append(n.fns, fn)
}

func (n *notifier) flush() {
	for _, fn := range n.fns {
		fn()
	}
}

// Options configures a Controller
type Options struct {
	NodeID      string
	LocalRegion string
	Config      config.OffloadConfig
	Registry    registry.NodeRegistry
	Transfer    transfer.Collaborator
	Publisher   events.Publisher
	Logger      *logging.Logger
	Clock       func() time.Time
}

// Controller is the production Manager implementation. One controller
// runs at most one offload operation at a time; a single mutex guards
// the status, target, progress and result as one aggregate so readers
// always see a coherent snapshot.
type Controller struct {
	registry  registry.NodeRegistry
	transfer  transfer.Collaborator
	publisher events.Publisher
	logger    *logging.Logger

	nodeID      string
	localRegion string
	now         func() time.Time

	mu          sync.Mutex
	cfg         config.OffloadConfig
	status      models.OffloadStatus
	target      *models.TargetNode
	operationID string
	opCfg       config.OffloadConfig
	opTarget    models.TargetNode
	tracker     *progressTracker
	retries     map[string]int
	lastResult  *models.OffloadResult
	opCancel    context.CancelFunc

	cbProgress     ProgressCallback
	cbComplete     CompleteCallback
	cbError        ErrorCallback
	cbStatusChange StatusChangeCallback
}

// NewController creates an idle controller
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.Global()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	c := &Controller{
		registry:    opts.Registry,
		transfer:    opts.Transfer,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		nodeID:      opts.NodeID,
		localRegion: opts.LocalRegion,
		now:         opts.Clock,
		cfg:         opts.Config,
		status:      models.StatusIdle,
		retries:     make(map[string]int),
	}
	c.tracker = newProgressTracker(opts.Clock)
	return c
}

// SetConfig replaces the controller configuration. A running operation
// keeps the snapshot it started with.
func (c *Controller) SetConfig(cfg config.OffloadConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid offload config: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

// Config returns the current configuration
func (c *Controller) Config() config.OffloadConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// AvailableNodes lists the nodes known to the registry
func (c *Controller) AvailableNodes(ctx context.Context) ([]models.TargetNode, error) {
	return c.registry.ListNodes(ctx)
}

// RefreshNodes forces a registry refresh and reports whether it succeeded
func (c *Controller) RefreshNodes(ctx context.Context) bool {
	return c.registry.Refresh(ctx)
}

// SelectTargetNode selects the named node as offload target if it is
// eligible to accept offloads
func (c *Controller) SelectTargetNode(ctx context.Context, nodeID string) error {
	nodes, err := c.registry.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}
	node, err := selector.Select(nodes, nodeID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = &node
	c.logger.Info("Target node selected", "target_node_id", node.NodeID)
	return nil
}

// AutoSelectTargetNode picks the best eligible node under the current
// configuration and selects it
func (c *Controller) AutoSelectTargetNode(ctx context.Context) (models.TargetNode, error) {
	nodes, err := c.registry.ListNodes(ctx)
	if err != nil {
		return models.TargetNode{}, fmt.Errorf("failed to list nodes: %w", err)
	}

	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	node, err := selector.AutoSelect(nodes, cfg, c.localRegion)
	if err != nil {
		return models.TargetNode{}, err
	}

	c.mu.Lock()
	c.target = &node
	c.mu.Unlock()

	c.logger.Info("Target node auto-selected",
		"target_node_id", node.NodeID,
		"available_storage", node.AvailableStorageBytes)
	return node, nil
}

// CurrentTarget returns the selected target node, if any
func (c *Controller) CurrentTarget() (models.TargetNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return models.TargetNode{}, false
	}
	return *c.target, true
}

// ClearTargetSelection drops the target selection. A running operation
// keeps the target it captured at start.
func (c *Controller) ClearTargetSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = nil
}

// Start begins offloading the given data ids to the selected target.
// With no data ids, everything the segment source lists is offloaded.
// It returns the operation id on success. Start is legal from Idle and
// from any terminal state; a paused operation must be resumed or
// cancelled first.
func (c *Controller) Start(ctx context.Context, dataIDs ...string) (string, error) {
	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.IsActive() {
		return "", ErrOperationInProgress
	}
	if c.target == nil {
		return "", ErrNoTargetSelected
	}

	opID := uuid.New().String()
	opCtx, cancel := context.WithCancel(context.Background())

	c.operationID = opID
	c.opCfg = c.cfg
	c.opTarget = *c.target
	c.retries = make(map[string]int)
	c.lastResult = nil
	c.opCancel = cancel
	c.setStatusLocked(models.StatusPreparing, n)

	c.logger.Info("Offload operation starting",
		"operation_id", opID,
		"target_node_id", c.opTarget.NodeID,
		"data_ids", len(dataIDs))

	go c.prepare(opCtx, opID, dataIDs, c.opCfg, c.opTarget)
	return opID, nil
}

// prepare plans the transfer outside the lock and launches the run
func (c *Controller) prepare(ctx context.Context, opID string, dataIDs []string, cfg config.OffloadConfig, target models.TargetNode) {
	plan, err := c.transfer.Plan(ctx, opID, dataIDs, cfg)

	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.operationID != opID || c.status != models.StatusPreparing {
		// Cancelled during planning
		return
	}
	if err != nil {
		c.failLocked(fmt.Errorf("failed to plan transfer: %w", err), n)
		return
	}
	if len(plan.Segments) == 0 {
		c.failLocked(ErrNoData, n)
		return
	}

	c.tracker.begin(plan.TotalBytes, int64(len(plan.Segments)))
	c.setStatusLocked(models.StatusTransferring, n)

	ev := transfer.Events{
		SegmentCompleted: func(segmentID string, bytes int64) { c.segmentCompleted(opID, segmentID, bytes) },
		SegmentFailed:    func(segmentID string, cause error) (bool, time.Duration) { return c.segmentFailed(opID, segmentID, cause) },
		Finished:         func(err error) { c.finished(opID, err) },
		Status:           c.Status,
	}
	go c.transfer.Run(ctx, target, cfg, plan, ev)
}

// Cancel aborts the current operation. Legal from Preparing,
// Transferring and Paused; an operation already completing runs out.
func (c *Controller) Cancel() bool {
	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case models.StatusPreparing, models.StatusTransferring, models.StatusPaused:
	default:
		c.rejectLocked(n, fmt.Errorf("cannot cancel offload in state %s: %w", c.status, ErrNoActiveOperation))
		return false
	}

	if c.opCancel != nil {
		c.opCancel()
		c.opCancel = nil
	}
	c.tracker.resume()
	c.setStatusLocked(models.StatusCancelled, n)
	c.finalizeLocked(false, "operation cancelled", n)
	c.logger.Info("Offload operation cancelled", "operation_id", c.operationID)
	return true
}

// Pause suspends segment dispatch. Legal only while transferring.
func (c *Controller) Pause() bool {
	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != models.StatusTransferring {
		c.rejectLocked(n, fmt.Errorf("cannot pause offload in state %s: %w", c.status, ErrInvalidState))
		return false
	}
	c.tracker.pause()
	c.setStatusLocked(models.StatusPaused, n)
	c.logger.Info("Offload operation paused",
		"operation_id", c.operationID,
		"progress_percent", c.tracker.snapshot().ProgressPercent())
	return true
}

// Resume continues a paused operation
func (c *Controller) Resume() bool {
	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != models.StatusPaused {
		c.rejectLocked(n, fmt.Errorf("cannot resume offload in state %s: %w", c.status, ErrInvalidState))
		return false
	}
	c.tracker.resume()
	c.setStatusLocked(models.StatusTransferring, n)
	c.logger.Info("Offload operation resumed", "operation_id", c.operationID)
	return true
}

// Status returns the current lifecycle state
func (c *Controller) Status() models.OffloadStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Progress returns a snapshot of the current operation's progress
func (c *Controller) Progress() models.OffloadProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.snapshot()
}

// IsActive reports whether an operation is in progress, including paused
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.IsActive()
}

// LastResult returns the result of the most recently finished operation
func (c *Controller) LastResult() (models.OffloadResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return models.OffloadResult{}, false
	}
	return *c.lastResult, true
}

// OnProgress registers the progress callback, replacing any previous one
func (c *Controller) OnProgress(cb ProgressCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cbProgress = cb
}

// OnComplete registers the completion callback, replacing any previous one
func (c *Controller) OnComplete(cb CompleteCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cbComplete = cb
}

// OnError registers the error callback, replacing any previous one
func (c *Controller) OnError(cb ErrorCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cbError = cb
}

// OnStatusChange registers the status change callback, replacing any
// previous one
func (c *Controller) OnStatusChange(cb StatusChangeCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cbStatusChange = cb
}

// segmentCompleted is the transfer intake for delivered segments
func (c *Controller) segmentCompleted(opID, segmentID string, bytes int64) {
	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.operationID != opID || !c.status.IsActive() {
		return
	}

	c.tracker.segmentCompleted(segmentID, bytes)
	progress := c.tracker.snapshot()

	if cb := c.cbProgress; cb != nil {
		n.add(func() { cb(progress) })
	}
	c.publishLocked(n, events.OffloadEvent{
		Kind:            events.KindProgress,
		OperationID:     opID,
		TargetNodeID:    c.opTarget.NodeID,
		Status:          c.status,
		ProgressPercent: progress.ProgressPercent(),
	})
}

// segmentFailed is the transfer intake for failed segment attempts. It
// decides whether the collaborator should retry and after what delay.
func (c *Controller) segmentFailed(opID, segmentID string, cause error) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.operationID != opID || !c.status.IsActive() {
		return false, 0
	}

	c.tracker.segmentFailed(segmentID)
	c.retries[segmentID]++
	attempt := c.retries[segmentID]

	if attempt > c.opCfg.MaxRetries {
		c.logger.Error("Segment exhausted retries",
			"operation_id", opID,
			"segment_id", segmentID,
			"attempts", attempt,
			"error", cause)
		return false, 0
	}

	delay := time.Duration(float64(c.opCfg.RetryDelay) *
		math.Pow(c.opCfg.RetryBackoffMultiplier, float64(attempt-1)))
	c.logger.Warn("Retrying segment",
		"operation_id", opID,
		"segment_id", segmentID,
		"attempt", attempt,
		"delay", delay)
	return true, delay
}

// finished is the transfer intake for the end of a run
func (c *Controller) finished(opID string, err error) {
	n := &notifier{}
	defer n.flush()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.operationID != opID || c.status.IsTerminal() {
		// Cancel already finalized the operation
		return
	}

	if err != nil {
		c.failLocked(err, n)
		return
	}

	c.setStatusLocked(models.StatusCompleting, n)
	c.setStatusLocked(models.StatusCompleted, n)
	c.finalizeLocked(true, "", n)
	c.logger.Info("Offload operation completed",
		"operation_id", opID,
		"transferred_bytes", c.tracker.snapshot().TransferredBytes)
}

// rejectLocked reports a refused command through the error callback.
// Caller holds the lock.
func (c *Controller) rejectLocked(n *notifier, cause error) {
	opID := c.operationID
	if cb := c.cbError; cb != nil {
		n.add(func() { cb(opID, cause) })
	}
	c.logger.Warn("Offload command rejected", "operation_id", opID, "error", cause)
}

// failLocked moves the operation to Failed and finalizes it.
// Caller holds the lock.
func (c *Controller) failLocked(cause error, n *notifier) {
	c.tracker.setError(cause.Error())
	c.setStatusLocked(models.StatusFailed, n)
	c.finalizeLocked(false, cause.Error(), n)

	opID := c.operationID
	if cb := c.cbError; cb != nil {
		n.add(func() { cb(opID, cause) })
	}
	c.publishLocked(n, events.OffloadEvent{
		Kind:         events.KindFailed,
		OperationID:  opID,
		TargetNodeID: c.opTarget.NodeID,
		Status:       models.StatusFailed,
		Error:        cause.Error(),
	})
	c.logger.Error("Offload operation failed", "operation_id", opID, "error", cause)
}

// finalizeLocked builds the terminal result and fires completion
// notifications. Caller holds the lock and has already set the terminal
// status.
func (c *Controller) finalizeLocked(success bool, errMsg string, n *notifier) {
	if c.opCancel != nil {
		c.opCancel()
		c.opCancel = nil
	}

	result := models.OffloadResult{
		OperationID:   c.operationID,
		Success:       success,
		ErrorMessage:  errMsg,
		FinalProgress: c.tracker.snapshot(),
		TargetNode:    c.opTarget,
		CompletedAt:   c.now(),
	}
	c.lastResult = &result

	if cb := c.cbComplete; cb != nil {
		n.add(func() { cb(result) })
	}
	if success {
		c.publishLocked(n, events.OffloadEvent{
			Kind:            events.KindCompleted,
			OperationID:     result.OperationID,
			TargetNodeID:    result.TargetNode.NodeID,
			Status:          c.status,
			ProgressPercent: result.FinalProgress.ProgressPercent(),
		})
	}
}

// setStatusLocked transitions the lifecycle state and queues the status
// change notifications. Caller holds the lock.
func (c *Controller) setStatusLocked(newStatus models.OffloadStatus, n *notifier) {
	old := c.status
	if old == newStatus {
		return
	}
	c.status = newStatus

	if cb := c.cbStatusChange; cb != nil {
		n.add(func() { cb(old, newStatus) })
	}
	c.publishLocked(n, events.OffloadEvent{
		Kind:           events.KindStatusChanged,
		OperationID:    c.operationID,
		TargetNodeID:   c.opTarget.NodeID,
		Status:         newStatus,
		PreviousStatus: old,
	})
}

// publishLocked queues an event for publication after the lock is
// released. Caller holds the lock.
func (c *Controller) publishLocked(n *notifier, event events.OffloadEvent) {
	event.NodeID = c.nodeID
	event.Timestamp = c.now()
	pub := c.publisher
	n.add(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, event); err != nil {
			c.logger.Warn("Failed to publish offload event", "kind", event.Kind, "error", err)
		}
	})
}
