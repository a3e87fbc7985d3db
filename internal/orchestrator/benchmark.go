package orchestrator

import (
	"time"

	"github.com/synapsenet/cir/internal/state"
)

// logBenchmark emits the single structured Benchmark log line spec.md §6
// requires exactly once per run, carrying every field a downstream
// analysis job keys off.
func (o *Orchestrator) logBenchmark(ss *state.SharedState, caseID string, start time.Time, resolved bool, finalStatus string) {
	o.Logger.Info("benchmark",
		"case_id", caseID,
		"resolved", resolved,
		"total_iterations", ss.TotalIterations,
		"replan_count", ss.ReplanCount,
		"tool_call_count", ss.ToolCallCount,
		"failure_type", currentFailureType(ss),
		"failing_artifact", ss.FailingArtifactPath,
		"wall_time_seconds", time.Since(start).Seconds(),
		"final_status", finalStatus,
	)
}

// currentFailureType reports the FailureType of the most recent test run,
// or FailureNone if the suite never ran during this repair cycle.
func currentFailureType(ss *state.SharedState) state.FailureType {
	if ss.LastTestResults == nil {
		return state.FailureNone
	}
	return ss.LastTestResults.FailureType
}
