package offload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/registry"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/selector"
)

// defaultSimulatedDataSize is the volume each data id contributes to a
// simulated operation
const defaultSimulatedDataSize = int64(100 * 1024 * 1024)

// Simulator is a Manager implementation that performs no transfers.
// Operations advance only through the Simulate* methods, and injectable
// hooks override individual behaviors. It backs integration tests and
// dry-run deployments where the control surface must work without
// moving data.
type Simulator struct {
	reg      *registry.StaticRegistry
	dataSize int64

	mu          sync.Mutex
	cfg         config.OffloadConfig
	status      models.OffloadStatus
	target      *models.TargetNode
	opTarget    models.TargetNode
	operationID string
	dataIDs     []string
	tracker     *progressTracker
	lastResult  *models.OffloadResult

	startHook      func(dataIDs []string) bool
	cancelHook     func()
	nodesHook      func() []models.TargetNode
	selectNodeHook func(nodeID string) bool

	cbProgress     ProgressCallback
	cbComplete     CompleteCallback
	cbError        ErrorCallback
	cbStatusChange StatusChangeCallback
}

// NewSimulator creates a simulator pre-loaded with the default test
// node set
func NewSimulator() *Simulator {
	return &Simulator{
		reg:      registry.NewStaticRegistry(registry.DefaultTestNodes()),
		dataSize: defaultSimulatedDataSize,
		cfg:      config.DefaultOffloadConfig(),
		status:   models.StatusIdle,
		tracker:  newProgressTracker(nil),
	}
}

// Registry exposes the backing static registry so tests can reshape the
// node set
func (s *Simulator) Registry() *registry.StaticRegistry { return s.reg }

// SetDataSize sets the simulated volume per data id
func (s *Simulator) SetDataSize(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataSize = bytes
}

// SetStartHook overrides Start admission; returning false fails the call
func (s *Simulator) SetStartHook(hook func(dataIDs []string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startHook = hook
}

// SetCancelHook observes Cancel calls
func (s *Simulator) SetCancelHook(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelHook = hook
}

// SetNodesHook overrides the node listing
func (s *Simulator) SetNodesHook(hook func() []models.TargetNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodesHook = hook
}

// SetSelectNodeHook overrides manual node selection admission
func (s *Simulator) SetSelectNodeHook(hook func(nodeID string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectNodeHook = hook
}

func (s *Simulator) SetConfig(cfg config.OffloadConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid offload config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func (s *Simulator) Config() config.OffloadConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Simulator) AvailableNodes(ctx context.Context) ([]models.TargetNode, error) {
	s.mu.Lock()
	hook := s.nodesHook
	s.mu.Unlock()
	if hook != nil {
		return hook(), nil
	}
	return s.reg.ListNodes(ctx)
}

func (s *Simulator) RefreshNodes(ctx context.Context) bool {
	return s.reg.Refresh(ctx)
}

func (s *Simulator) SelectTargetNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	hook := s.selectNodeHook
	s.mu.Unlock()
	if hook != nil && !hook(nodeID) {
		return selector.ErrNodeNotEligible
	}

	nodes, err := s.AvailableNodes(ctx)
	if err != nil {
		return err
	}
	node, err := selector.Select(nodes, nodeID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = &node
	return nil
}

func (s *Simulator) AutoSelectTargetNode(ctx context.Context) (models.TargetNode, error) {
	nodes, err := s.AvailableNodes(ctx)
	if err != nil {
		return models.TargetNode{}, err
	}

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	node, err := selector.AutoSelect(nodes, cfg, "")
	if err != nil {
		return models.TargetNode{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = &node
	return node, nil
}

func (s *Simulator) CurrentTarget() (models.TargetNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return models.TargetNode{}, false
	}
	return *s.target, true
}

func (s *Simulator) ClearTargetSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = nil
}

// Start admits a simulated operation and leaves it in Transferring with
// zero progress until a Simulate* method advances it. With no data ids
// the simulation covers one data-size unit, mirroring an
// offload-everything start.
func (s *Simulator) Start(ctx context.Context, dataIDs ...string) (string, error) {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsActive() {
		return "", ErrOperationInProgress
	}
	if s.target == nil {
		return "", ErrNoTargetSelected
	}
	if s.startHook != nil && !s.startHook(dataIDs) {
		return "", errors.New("start rejected by hook")
	}

	s.operationID = uuid.New().String()
	s.opTarget = *s.target
	s.dataIDs = append([]string(nil), dataIDs...)
	s.lastResult = nil

	units := int64(len(dataIDs))
	if units == 0 {
		units = 1
	}
	totalBytes := units * s.dataSize
	segments := totalBytes / s.cfg.SegmentSize
	if totalBytes%s.cfg.SegmentSize != 0 || segments == 0 {
		segments++
	}
	s.tracker.begin(totalBytes, segments)

	s.setStatusLocked(models.StatusPreparing, n)
	s.setStatusLocked(models.StatusTransferring, n)
	return s.operationID, nil
}

func (s *Simulator) Cancel() bool {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case models.StatusPreparing, models.StatusTransferring, models.StatusPaused:
	default:
		s.rejectLocked(n, fmt.Errorf("cannot cancel offload in state %s: %w", s.status, ErrNoActiveOperation))
		return false
	}

	if s.cancelHook != nil {
		hook := s.cancelHook
		n.add(hook)
	}
	s.tracker.resume()
	s.setStatusLocked(models.StatusCancelled, n)
	s.finalizeLocked(false, "operation cancelled", n)
	return true
}

func (s *Simulator) Pause() bool {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusTransferring {
		s.rejectLocked(n, fmt.Errorf("cannot pause offload in state %s: %w", s.status, ErrInvalidState))
		return false
	}
	s.tracker.pause()
	s.setStatusLocked(models.StatusPaused, n)
	return true
}

func (s *Simulator) Resume() bool {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusPaused {
		s.rejectLocked(n, fmt.Errorf("cannot resume offload in state %s: %w", s.status, ErrInvalidState))
		return false
	}
	s.tracker.resume()
	s.setStatusLocked(models.StatusTransferring, n)
	return true
}

// rejectLocked reports a refused command through the error callback.
// Caller holds the lock.
func (s *Simulator) rejectLocked(n *notifier, cause error) {
	opID := s.operationID
	if cb := s.cbError; cb != nil {
		n.add(func() { cb(opID, cause) })
	}
}

func (s *Simulator) Status() models.OffloadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Simulator) Progress() models.OffloadProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.snapshot()
}

func (s *Simulator) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.IsActive()
}

func (s *Simulator) LastResult() (models.OffloadResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return models.OffloadResult{}, false
	}
	return *s.lastResult, true
}

func (s *Simulator) OnProgress(cb ProgressCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cbProgress = cb
}

func (s *Simulator) OnComplete(cb CompleteCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cbComplete = cb
}

func (s *Simulator) OnError(cb ErrorCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cbError = cb
}

func (s *Simulator) OnStatusChange(cb StatusChangeCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cbStatusChange = cb
}

// DataIDs returns the data ids of the current or most recent operation
func (s *Simulator) DataIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dataIDs...)
}

// ForceStatus sets the lifecycle state directly, firing the status
// change callback. Intended for driving edge cases in tests.
func (s *Simulator) ForceStatus(status models.OffloadStatus) {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(status, n)
}

// SimulateProgress sets the transferred byte count of the active
// operation and fires the progress callback
func (s *Simulator) SimulateProgress(transferredBytes int64) {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.IsActive() {
		return
	}

	p := s.tracker.snapshot()
	if transferredBytes > p.TotalBytes {
		transferredBytes = p.TotalBytes
	}
	delta := transferredBytes - p.TransferredBytes
	if delta > 0 {
		segID := fmt.Sprintf("sim-%d", p.SegmentsCompleted+1)
		s.tracker.segmentCompleted(segID, delta)
	}

	progress := s.tracker.snapshot()
	if cb := s.cbProgress; cb != nil {
		n.add(func() { cb(progress) })
	}
}

// SimulateComplete drives the active operation to full progress and
// Completed
func (s *Simulator) SimulateComplete() {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.IsActive() {
		return
	}

	p := s.tracker.snapshot()
	if remaining := p.TotalBytes - p.TransferredBytes; remaining > 0 {
		s.tracker.segmentCompleted("sim-final", remaining)
	}
	for s.tracker.snapshot().SegmentsCompleted < p.SegmentsTotal {
		s.tracker.segmentCompleted("sim-final", 0)
	}

	progress := s.tracker.snapshot()
	if cb := s.cbProgress; cb != nil {
		n.add(func() { cb(progress) })
	}

	s.tracker.resume()
	s.setStatusLocked(models.StatusCompleting, n)
	s.setStatusLocked(models.StatusCompleted, n)
	s.finalizeLocked(true, "", n)
}

// SimulateError fails the active operation with the given message
func (s *Simulator) SimulateError(msg string) {
	n := &notifier{}
	defer n.flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.IsActive() {
		return
	}

	s.tracker.resume()
	s.tracker.setError(msg)
	s.setStatusLocked(models.StatusFailed, n)
	s.finalizeLocked(false, msg, n)

	opID := s.operationID
	if cb := s.cbError; cb != nil {
		n.add(func() { cb(opID, errors.New(msg)) })
	}
}

// Reset returns the simulator to a fresh idle state, keeping hooks and
// callbacks registered
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = models.StatusIdle
	s.target = nil
	s.opTarget = models.TargetNode{}
	s.operationID = ""
	s.dataIDs = nil
	s.lastResult = nil
	s.tracker = newProgressTracker(nil)
	s.reg.SetNodes(registry.DefaultTestNodes())
}

// setStatusLocked transitions the state and queues the callback.
// Caller holds the lock.
func (s *Simulator) setStatusLocked(newStatus models.OffloadStatus, n *notifier) {
	old := s.status
	if old == newStatus {
		return
	}
	s.status = newStatus
	if cb := s.cbStatusChange; cb != nil {
		n.add(func() { cb(old, newStatus) })
	}
}

// finalizeLocked records the terminal result and queues the completion
// callback. Caller holds the lock.
func (s *Simulator) finalizeLocked(success bool, errMsg string, n *notifier) {
	result := models.OffloadResult{
		OperationID:   s.operationID,
		Success:       success,
		ErrorMessage:  errMsg,
		FinalProgress: s.tracker.snapshot(),
		TargetNode:    s.opTarget,
		CompletedAt:   time.Now(),
	}
	s.lastResult = &result
	if cb := s.cbComplete; cb != nil {
		n.add(func() { cb(result) })
	}
}
