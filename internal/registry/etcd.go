package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// EtcdRegistry is a NodeRegistry backed by etcd. Storage nodes publish
// their resource snapshots as JSON under a shared key prefix (kept alive
// through leases by the nodes themselves); this registry reads them.
type EtcdRegistry struct {
	client     *clientv3.Client
	prefix     string
	staleAfter time.Duration
	logger     *logging.Logger

	mu    sync.RWMutex
	cache []models.TargetNode
	now   func() time.Time
}

// NewEtcdRegistry creates an etcd-backed node registry reading snapshots
// under the given key prefix. Nodes whose health check is older than
// staleAfter are reported with unknown health.
func NewEtcdRegistry(client *clientv3.Client, prefix string, staleAfter time.Duration, logger *logging.Logger) *EtcdRegistry {
	return &EtcdRegistry{
		client:     client,
		prefix:     prefix,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// ListNodes returns the cached node set, fetching from etcd when the cache
// is empty. Callers own the returned slice.
func (r *EtcdRegistry) ListNodes(ctx context.Context) ([]models.TargetNode, error) {
	r.mu.RLock()
	cached := r.cache
	r.mu.RUnlock()

	if cached == nil {
		if err := r.fetch(ctx); err != nil {
			return nil, err
		}
		r.mu.RLock()
		cached = r.cache
		r.mu.RUnlock()
	}

	out := make([]models.TargetNode, len(cached))
	copy(out, cached)
	r.markStale(out)
	return out, nil
}

// Refresh re-reads the node snapshots from etcd
func (r *EtcdRegistry) Refresh(ctx context.Context) bool {
	if err := r.fetch(ctx); err != nil {
		r.logger.Warn("Node registry refresh failed", "error", err)
		return false
	}
	return true
}

// fetch reads all node snapshots under the prefix and replaces the cache
func (r *EtcdRegistry) fetch(ctx context.Context) error {
	resp, err := r.client.Get(ctx, r.prefix, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("failed to list nodes from etcd: %w", err)
	}

	nodes := make([]models.TargetNode, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var node models.TargetNode
		if err := json.Unmarshal(kv.Value, &node); err != nil {
			r.logger.Warn("Skipping malformed node snapshot",
				"key", string(kv.Key),
				"error", err)
			continue
		}
		nodes = append(nodes, node)
	}

	r.mu.Lock()
	r.cache = nodes
	r.mu.Unlock()

	r.logger.Debug("Node registry refreshed", "nodes", len(nodes))
	return nil
}

// markStale degrades nodes with an outdated health check to unknown health,
// so the selector never admits a node the cluster has stopped reporting on.
func (r *EtcdRegistry) markStale(nodes []models.TargetNode) {
	if r.staleAfter <= 0 {
		return
	}
	cutoff := r.now().Add(-r.staleAfter)
	for i := range nodes {
		if nodes[i].LastHealthCheck.Before(cutoff) {
			nodes[i].Health = models.HealthUnknown
		}
	}
}
