package transfer

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
)

// ConnectionPool manages gRPC connections to offload target nodes
type ConnectionPool struct {
	mu     sync.RWMutex
	conns  map[string]*grpc.ClientConn
	logger *logging.Logger

	maxMessageSize      int
	healthCheckInterval time.Duration
	stopCh              chan struct{}
	wg                  sync.WaitGroup
	closed              bool
	closeMu             sync.Mutex
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool(maxMessageSize int, healthCheckInterval time.Duration, logger *logging.Logger) *ConnectionPool {
	pool := &ConnectionPool{
		conns:               make(map[string]*grpc.ClientConn),
		logger:              logger,
		maxMessageSize:      maxMessageSize,
		healthCheckInterval: healthCheckInterval,
		stopCh:              make(chan struct{}),
	}

	pool.wg.Add(1)
	go pool.healthCheckLoop()

	return pool
}

// GetConnection gets or creates a gRPC connection to the given address
func (p *ConnectionPool) GetConnection(address string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, exists := p.conns[address]
	p.mu.RUnlock()

	if exists && usable(conn) {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if conn, exists := p.conns[address]; exists {
		if usable(conn) {
			return conn, nil
		}
		_ = conn.Close()
		delete(p.conns, address)
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(p.maxMessageSize),
			grpc.MaxCallSendMsgSize(p.maxMessageSize),
		),
	}

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	p.conns[address] = conn
	p.logger.Debug("Created gRPC connection", "address", address)
	return conn, nil
}

func usable(conn *grpc.ClientConn) bool {
	state := conn.GetState()
	return state != connectivity.TransientFailure && state != connectivity.Shutdown
}

// healthCheckLoop periodically evicts broken connections
func (p *ConnectionPool) healthCheckLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictBroken()
		case <-p.stopCh:
			return
		}
	}
}

func (p *ConnectionPool) evictBroken() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for address, conn := range p.conns {
		if !usable(conn) {
			p.logger.Warn("Evicting unhealthy gRPC connection",
				"address", address,
				"state", conn.GetState().String())
			_ = conn.Close()
			delete(p.conns, address)
		}
	}
}

// Close closes all connections and stops the health checker
func (p *ConnectionPool) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	close(p.stopCh)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for address, conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, address)
	}
	return nil
}
