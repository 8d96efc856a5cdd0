package registry

import (
	"context"
	"sync"
	"time"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// NodeRegistry supplies the last-known snapshot of candidate target nodes.
// The offload controller consumes it read-only.
type NodeRegistry interface {
	// ListNodes returns a snapshot of the known nodes.
	// Callers own the returned slice.
	ListNodes(ctx context.Context) ([]models.TargetNode, error)

	// Refresh asks the registry to re-poll cluster health.
	// Returns true when the refresh succeeded.
	Refresh(ctx context.Context) bool
}

// StaticRegistry is an in-memory NodeRegistry. It backs the simulator and
// tests, and serves as a fallback when no etcd endpoints are configured.
type StaticRegistry struct {
	mu    sync.RWMutex
	nodes []models.TargetNode
	now   func() time.Time
}

// NewStaticRegistry creates a registry pre-populated with the given nodes
func NewStaticRegistry(nodes []models.TargetNode) *StaticRegistry {
	r := &StaticRegistry{now: time.Now}
	r.SetNodes(nodes)
	return r
}

// ListNodes returns a copy of the current node set
func (r *StaticRegistry) ListNodes(ctx context.Context) ([]models.TargetNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.TargetNode, len(r.nodes))
	copy(out, r.nodes)
	return out, nil
}

// Refresh updates the health-check timestamp of every node
func (r *StaticRegistry) Refresh(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for i := range r.nodes {
		r.nodes[i].LastHealthCheck = now
	}
	return true
}

// SetNodes replaces the node set
func (r *StaticRegistry) SetNodes(nodes []models.TargetNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make([]models.TargetNode, len(nodes))
	copy(r.nodes, nodes)
}

// AddNode appends a node to the set
func (r *StaticRegistry) AddNode(node models.TargetNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = append(r.nodes, node)
}

// RemoveNode removes the node with the given id, if present
func (r *StaticRegistry) RemoveNode(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.nodes {
		if n.NodeID == nodeID {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			return
		}
	}
}

// SetNodeHealth updates the health of the node with the given id
func (r *StaticRegistry) SetNodeHealth(nodeID string, health models.NodeHealth) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.nodes {
		if r.nodes[i].NodeID == nodeID {
			r.nodes[i].Health = health
			return
		}
	}
}

// Clear removes all nodes
func (r *StaticRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nil
}

// NodeCount returns the number of known nodes
func (r *StaticRegistry) NodeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// NewTestNode builds a healthy, accepting node with the given identity and
// available storage, for registries used in tests and simulation.
func NewTestNode(id, address string, availableStorage int64) models.TargetNode {
	return models.TargetNode{
		NodeID:                id,
		Address:               address,
		ClusterID:             "test-cluster",
		Region:                "us-east-1",
		TotalStorageBytes:     availableStorage * 2,
		UsedStorageBytes:      availableStorage,
		AvailableStorageBytes: availableStorage,
		CPUUsagePercent:       30.0,
		MemoryUsagePercent:    40.0,
		Health:                models.HealthHealthy,
		AcceptingOffloads:     true,
		ActiveOffloadCount:    0,
		MaxConcurrentOffloads: 10,
		LastHealthCheck:       time.Now(),
	}
}

// DefaultTestNodes returns the standard three-node fixture used by the
// simulator: node1 (100GB), node2 (200GB) and node3 (50GB) available.
func DefaultTestNodes() []models.TargetNode {
	const gib = 1024 * 1024 * 1024
	return []models.TargetNode{
		NewTestNode("node1", "192.168.1.10:6651", 100*gib),
		NewTestNode("node2", "192.168.1.11:6651", 200*gib),
		NewTestNode("node3", "192.168.1.12:6651", 50*gib),
	}
}
