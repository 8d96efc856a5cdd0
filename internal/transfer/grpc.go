package transfer

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"sync"
	"time"

	"github.com/golang/snappy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

const segmentMethod = "/redcomponent.offload.v1.TransferService/PutSegment"

// pauseCheckInterval is how often a paused worker re-checks the controller state
const pauseCheckInterval = 200 * time.Millisecond

// GRPCTransfer is the production transfer collaborator. It reads segment
// bytes from the local SegmentSource and pushes them to the target node
// over per-segment gRPC calls, with optional snappy compression and
// checksum verification.
type GRPCTransfer struct {
	pool   *ConnectionPool
	source SegmentSource
	logger *logging.Logger
}

// NewGRPCTransfer creates a gRPC-backed transfer collaborator
func NewGRPCTransfer(pool *ConnectionPool, source SegmentSource, logger *logging.Logger) *GRPCTransfer {
	return &GRPCTransfer{
		pool:   pool,
		source: source,
		logger: logger,
	}
}

// Plan sizes the requested data ids and builds the segment plan
func (t *GRPCTransfer) Plan(ctx context.Context, operationID string, dataIDs []string, cfg config.OffloadConfig) (Plan, error) {
	return BuildPlan(ctx, operationID, t.source, dataIDs, cfg.SegmentSize)
}

// Run transfers the planned segments to the target with the configured
// concurrency. Pause and cancellation are observed cooperatively through
// ev.Status between segments; in-flight segment calls are not interrupted.
func (t *GRPCTransfer) Run(ctx context.Context, target models.TargetNode, cfg config.OffloadConfig, plan Plan, ev Events) {
	conn, err := t.dial(ctx, target.Address, cfg.ConnectTimeout)
	if err != nil {
		ev.Finished(fmt.Errorf("failed to reach target %s: %w", target.NodeID, err))
		return
	}

	workers := cfg.MaxConcurrentTransfers
	if workers <= 0 {
		workers = 1
	}

	segCh := make(chan Segment)
	var wg sync.WaitGroup
	var stopOnce sync.Once
	var runErr error
	stopped := make(chan struct{})

	stop := func(err error) {
		stopOnce.Do(func() {
			runErr = err
			close(stopped)
		})
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range segCh {
				if !t.awaitTransferring(ctx, ev, stopped) {
					stop(ctx.Err())
					return
				}
				if err := t.sendWithRetry(ctx, conn, plan.OperationID, seg, cfg, ev); err != nil {
					stop(err)
					return
				}
			}
		}()
	}

feed:
	for _, seg := range plan.Segments {
		select {
		case segCh <- seg:
		case <-stopped:
			break feed
		case <-ctx.Done():
			stop(ctx.Err())
			break feed
		}
	}
	close(segCh)
	wg.Wait()

	ev.Finished(runErr)
}

// awaitTransferring blocks while the operation is paused and reports
// whether the worker should keep going.
func (t *GRPCTransfer) awaitTransferring(ctx context.Context, ev Events, stopped <-chan struct{}) bool {
	for {
		switch ev.Status() {
		case models.StatusTransferring:
			return true
		case models.StatusPaused:
			select {
			case <-time.After(pauseCheckInterval):
			case <-stopped:
				return false
			case <-ctx.Done():
				return false
			}
		default:
			// Cancelled, Failed or another state the collaborator must not
			// issue further work for
			return false
		}
	}
}

// sendWithRetry pushes one segment, consulting the controller's retry
// policy on each failure. A nil return means the segment was delivered or
// the controller absorbed the failure; a non-nil return means the
// controller escalated and the run must stop.
func (t *GRPCTransfer) sendWithRetry(ctx context.Context, conn *grpc.ClientConn, operationID string, seg Segment, cfg config.OffloadConfig, ev Events) error {
	for {
		err := t.sendSegment(ctx, conn, operationID, seg, cfg)
		if err == nil {
			ev.SegmentCompleted(seg.ID, seg.Size)
			return nil
		}

		t.logger.Warn("Segment transfer failed",
			"segment_id", seg.ID,
			"data_id", seg.DataID,
			"error", err)

		retry, delay := ev.SegmentFailed(seg.ID, err)
		if !retry {
			return err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sendSegment reads, optionally compresses and ships a single segment
func (t *GRPCTransfer) sendSegment(ctx context.Context, conn *grpc.ClientConn, operationID string, seg Segment, cfg config.OffloadConfig) error {
	payload, err := t.source.Read(ctx, seg.DataID, seg.Offset, seg.Size)
	if err != nil {
		return fmt.Errorf("failed to read segment %s: %w", seg.ID, err)
	}

	frame := segmentFrame{
		OperationID: operationID,
		SegmentID:   seg.ID,
		DataID:      seg.DataID,
		Offset:      seg.Offset,
		Size:        int64(len(payload)),
		Payload:     payload,
	}
	if cfg.VerifyIntegrity {
		frame.Checksum = crc32.ChecksumIEEE(payload)
	}
	if cfg.CompressTransfers {
		frame.Payload = snappy.Encode(nil, payload)
		frame.Compressed = true
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.TransferTimeout)
	defer cancel()

	var ack segmentAck
	if err := conn.Invoke(callCtx, segmentMethod, &frame, &ack, grpc.ForceCodec(jsonCodec{})); err != nil {
		return fmt.Errorf("segment %s rpc failed: %w", seg.ID, err)
	}
	if !ack.OK {
		return fmt.Errorf("segment %s rejected by target: %s", seg.ID, ack.Error)
	}
	return nil
}

// dial obtains a pooled connection and waits for it to become ready
func (t *GRPCTransfer) dial(ctx context.Context, address string, connectTimeout time.Duration) (*grpc.ClientConn, error) {
	if address == "" {
		return nil, errors.New("target has no address")
	}

	conn, err := t.pool.GetConnection(address)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return conn, nil
		}
		if !conn.WaitForStateChange(dialCtx, state) {
			return nil, fmt.Errorf("connection to %s not ready: %w", address, dialCtx.Err())
		}
	}
}
