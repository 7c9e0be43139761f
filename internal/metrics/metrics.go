package metrics

import (
	"sync"
	"sync/atomic"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized)
const (
	// Store
	StoreKeysTotal         MetricKey = "store_keys_total"
	StorePutsTotal         MetricKey = "store_puts_total"
	StoreGetsTotal         MetricKey = "store_gets_total"
	StoreHitsTotal         MetricKey = "store_hits_total"
	StoreMissesTotal       MetricKey = "store_misses_total"
	StoreExpiredTotal      MetricKey = "store_expired_total"
	StoreExpiredReadsTotal MetricKey = "store_expired_reads_total" // Get only, not sweeps
	StoreEvictedTotal      MetricKey = "store_evicted_total"

	// Snapshot
	SnapshotSavesTotal        MetricKey = "snapshot_saves_total"
	SnapshotSaveFailuresTotal MetricKey = "snapshot_save_failures_total"
	SnapshotLoadsTotal        MetricKey = "snapshot_loads_total"
	SnapshotLoadFailuresTotal MetricKey = "snapshot_load_failures_total"
	SnapshotCorruptTotal      MetricKey = "snapshot_corrupt_total"

	// TTL sweep
	TTLCleanupRunsTotal MetricKey = "ttl_cleanup_runs_total"
	TTLKeysRemovedTotal MetricKey = "ttl_keys_removed_total"

	// Config
	ConfigReloadsTotal MetricKey = "config_reloads_total"
)

// Registry stores all metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[MetricKey]*int64),
	}
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
func (r *Registry) Add(key MetricKey, delta int64) {
	atomic.AddInt64(r.counter(key), delta)
}

// Set overwrites a metric. Used for gauges such as StoreKeysTotal
// after a snapshot replaces the whole store.
func (r *Registry) Set(key MetricKey, value int64) {
	atomic.StoreInt64(r.counter(key), value)
}

// Value returns the current value of a metric, or 0 if it was never touched.
func (r *Registry) Value(key MetricKey) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ptr, ok := r.counters[key]; ok {
		return atomic.LoadInt64(ptr)
	}
	return 0
}

// counter returns the cell for key, creating it on first use.
func (r *Registry) counter(key MetricKey) *int64 {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if ok {
		return ptr
	}

	// Slow path: metric not yet initialized
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if ptr, ok = r.counters[key]; ok {
		return ptr
	}

	ptr = new(int64)
	r.counters[key] = ptr
	return ptr
}
