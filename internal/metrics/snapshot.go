package metrics

import "sync/atomic"

// Snapshot returns a deep copy of all metrics keyed by metric name.
// Safe for concurrent use and immune to external mutation.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64, len(r.counters))
	for key, ptr := range r.counters {
		out[string(key)] = atomic.LoadInt64(ptr)
	}
	return out
}

// Sum adds up the given keys in a snapshot. Missing keys count as zero.
func Sum(snapshot map[string]int64, keys ...MetricKey) int64 {
	var total int64
	for _, key := range keys {
		total += snapshot[string(key)]
	}
	return total
}
