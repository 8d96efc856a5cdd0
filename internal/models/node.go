package models

import "time"

// NodeHealth represents the health status of a node
type NodeHealth string

const (
	HealthHealthy   NodeHealth = "healthy"
	HealthDegraded  NodeHealth = "degraded"
	HealthUnhealthy NodeHealth = "unhealthy"
	HealthUnknown   NodeHealth = "unknown"
)

// TargetNode holds the last-known resource and health snapshot of a
// candidate offload target. Instances are supplied by the node registry
// and read-only to the offload controller; a selected target is stored
// as a copy so later registry updates do not change an in-flight operation.
type TargetNode struct {
	NodeID    string `json:"node_id"`
	Address   string `json:"address"` // host:port
	ClusterID string `json:"cluster_id"`
	Region    string `json:"region"`

	// Capacity
	TotalStorageBytes     int64 `json:"total_storage_bytes"`
	UsedStorageBytes      int64 `json:"used_storage_bytes"`
	AvailableStorageBytes int64 `json:"available_storage_bytes"`

	// Load
	CPUUsagePercent           float64 `json:"cpu_usage_percent"`
	MemoryUsagePercent        float64 `json:"memory_usage_percent"`
	NetworkUtilizationPercent float64 `json:"network_utilization_percent"`

	// Health and admission
	Health                NodeHealth `json:"health"`
	AcceptingOffloads     bool       `json:"accepting_offloads"`
	ActiveOffloadCount    int        `json:"active_offload_count"`
	MaxConcurrentOffloads int        `json:"max_concurrent_offloads"`

	// Freshness
	LastHealthCheck       time.Time `json:"last_health_check"`
	LastSuccessfulOffload time.Time `json:"last_successful_offload,omitempty"`
}

// StorageUsagePercent returns the used fraction of total storage in [0, 100]
func (n *TargetNode) StorageUsagePercent() float64 {
	if n.TotalStorageBytes == 0 {
		return 0.0
	}
	return 100.0 * float64(n.UsedStorageBytes) / float64(n.TotalStorageBytes)
}

// CanAcceptOffload reports whether the node passes the admission predicate:
// it accepts offloads, is healthy, and has offload slots left.
func (n *TargetNode) CanAcceptOffload() bool {
	return n.AcceptingOffloads &&
		n.Health == HealthHealthy &&
		n.ActiveOffloadCount < n.MaxConcurrentOffloads
}
