package health

import (
	"strings"

	"memory-loop/internal/logs"
	"memory-loop/internal/metrics"
)

// Number of recent log entries inspected and the repeat count that
// turns logged save failures into a signal.
const (
	logWindow            = 100
	saveFailureThreshold = 3
)

// Analyzer converts metrics + logs into a health report.
type Analyzer struct {
	metrics *metrics.Registry
	logger  *logs.Logger
	rules   []Rule
}

// NewAnalyzer creates an analyzer with the default rule set.
func NewAnalyzer(reg *metrics.Registry, logger *logs.Logger) *Analyzer {
	return &Analyzer{
		metrics: reg,
		logger:  logger,
		rules: []Rule{
			EvictionPressureRule,
			SnapshotFailureRule,
			CorruptSnapshotRule,
			ExpiredReadRatioRule,
		},
	}
}

// Analyze evaluates metrics and recent logs and returns a health report.
func (a *Analyzer) Analyze() Report {
	snapshot := a.metrics.Snapshot()

	var (
		signals         = []string{}
		recommendations = []string{}
		status          = StatusOK
	)

	/* ---------- METRICS-BASED RULES ---------- */

	for _, rule := range a.rules {
		result := rule(snapshot)
		if !result.Triggered {
			continue
		}

		signals = append(signals, result.Signal)
		recommendations = append(recommendations, result.Recommendation)
		status = escalate(status, result.Severity)
	}

	/* ---------- LOG-BASED SIGNALS ---------- */

	saveFailures := 0
	for _, entry := range a.logger.GetLast(logWindow) {
		if entry.Level == logs.ERROR && strings.Contains(entry.Message, "snapshot save failed") {
			saveFailures++
		}
	}

	if saveFailures >= saveFailureThreshold {
		signals = append(signals, "Repeated snapshot save failures in recent logs")
		recommendations = append(recommendations, "Autosave keeps failing; state written since the last good save is at risk")
		status = escalate(status, StatusDegraded)
	}

	/* ---------- SUMMARY ---------- */

	summary := "Store is healthy"
	if status != StatusOK {
		summary = "Store health issues detected"
	}

	return Report{
		Status:          status,
		Summary:         summary,
		Signals:         signals,
		Recommendations: recommendations,
	}
}
