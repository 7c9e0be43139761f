package health

import "memory-loop/internal/metrics"

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       Status
}

// Rule evaluates a metrics snapshot.
type Rule func(snapshot map[string]int64) RuleResult

// minGetsForRatio avoids flagging the expired-read ratio on tiny samples.
const minGetsForRatio = 10

// ---------- RULES ----------

// Evictions mean live entries are being dropped to honor capacity.
func EvictionPressureRule(snapshot map[string]int64) RuleResult {
	if snapshot[string(metrics.StoreEvictedTotal)] > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Entries evicted due to capacity pressure",
			Recommendation: "Raise store.capacity or lower store.ttl so entries expire before eviction",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}

// Failed snapshot I/O means state may not survive a restart.
func SnapshotFailureRule(snapshot map[string]int64) RuleResult {
	failures := metrics.Sum(snapshot,
		metrics.SnapshotSaveFailuresTotal,
		metrics.SnapshotLoadFailuresTotal,
	)
	if failures > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Snapshot save or load failures detected",
			Recommendation: "Check snapshot.path permissions and free disk space",
			Severity:       StatusCritical,
		}
	}
	return RuleResult{}
}

// A corrupt snapshot was refused; the store kept its previous state.
func CorruptSnapshotRule(snapshot map[string]int64) RuleResult {
	if snapshot[string(metrics.SnapshotCorruptTotal)] > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Corrupt snapshot rejected",
			Recommendation: "Inspect or remove the snapshot file; it will be rewritten on next save",
			Severity:       StatusCritical,
		}
	}
	return RuleResult{}
}

// Most reads hitting stale entries suggests the TTL is too short.
// Entries removed by the sweep never reached a reader and do not count.
func ExpiredReadRatioRule(snapshot map[string]int64) RuleResult {
	gets := snapshot[string(metrics.StoreGetsTotal)]
	expired := snapshot[string(metrics.StoreExpiredReadsTotal)]

	if gets >= minGetsForRatio && expired*2 > gets {
		return RuleResult{
			Triggered:      true,
			Signal:         "Most reads find expired entries",
			Recommendation: "Increase store.ttl if callers expect entries to live longer",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}
