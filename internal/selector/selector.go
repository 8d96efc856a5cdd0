// Package selector implements the target-node selection policy: admission
// filtering plus a deterministic ranking over noisy resource metrics.
package selector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

var (
	// ErrNodeNotFound is returned when a manually requested node id is unknown
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeNotEligible is returned when a manually requested node fails
	// the admission predicate. Manual selection never bypasses admission.
	ErrNodeNotEligible = errors.New("node cannot accept offloads")

	// ErrNoEligibleNode is returned when automatic selection finds no
	// node passing admission
	ErrNoEligibleNode = errors.New("no suitable target node available")
)

// Select looks up nodeID in the given snapshot and returns a copy of the
// node if it passes the admission predicate.
func Select(nodes []models.TargetNode, nodeID string) (models.TargetNode, error) {
	for _, node := range nodes {
		if node.NodeID != nodeID {
			continue
		}
		if !node.CanAcceptOffload() {
			return models.TargetNode{}, fmt.Errorf("node %s: %w", nodeID, ErrNodeNotEligible)
		}
		return node, nil
	}
	return models.TargetNode{}, fmt.Errorf("node %s: %w", nodeID, ErrNodeNotFound)
}

// AutoSelect picks the best eligible node from the snapshot: the node with
// the most available storage, ties broken by lower CPU usage, then by
// membership in localRegion when the config prefers it, then by node id.
// The ordering is total, so the choice is deterministic for a given snapshot.
func AutoSelect(nodes []models.TargetNode, cfg config.OffloadConfig, localRegion string) (models.TargetNode, error) {
	eligible := make([]models.TargetNode, 0, len(nodes))
	for _, node := range nodes {
		if admissible(&node, cfg) {
			eligible = append(eligible, node)
		}
	}
	if len(eligible) == 0 {
		return models.TargetNode{}, ErrNoEligibleNode
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := &eligible[i], &eligible[j]
		if a.AvailableStorageBytes != b.AvailableStorageBytes {
			return a.AvailableStorageBytes > b.AvailableStorageBytes
		}
		if a.CPUUsagePercent != b.CPUUsagePercent {
			return a.CPUUsagePercent < b.CPUUsagePercent
		}
		if cfg.PreferLocalRegion && localRegion != "" {
			aLocal := a.Region == localRegion
			bLocal := b.Region == localRegion
			if aLocal != bLocal {
				return aLocal
			}
		}
		return a.NodeID < b.NodeID
	})

	return eligible[0], nil
}

// admissible applies the node admission predicate plus the configured
// target limits used by automatic selection.
func admissible(node *models.TargetNode, cfg config.OffloadConfig) bool {
	if !node.CanAcceptOffload() {
		return false
	}
	if node.AvailableStorageBytes < cfg.MinAvailableStorageBytes {
		return false
	}
	if cfg.MaxTargetCPUUsage > 0 && node.CPUUsagePercent > cfg.MaxTargetCPUUsage {
		return false
	}
	if cfg.MaxTargetMemoryUsage > 0 && node.MemoryUsagePercent > cfg.MaxTargetMemoryUsage {
		return false
	}
	return true
}
