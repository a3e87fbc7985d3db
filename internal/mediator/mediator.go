// Package mediator implements the CIR decision function: given the phase
// that just ran and what happened during it, decide whether to advance,
// retry, replan, or terminate the run. It is a pure function of its
// inputs — no IO, no LLM call, no mutation beyond the counters it is asked
// to update on the SharedState it's handed.
package mediator

import (
	"strings"

	"github.com/synapsenet/cir/internal/state"
)

// MaxTotalIterations is the hard ceiling on how many times the
// Orchestrator loop may execute a task before the run is failed outright,
// regardless of phase or decision.
const MaxTotalIterations = 20

// MaxRetriesPerTask is how many times a single task may be retried (via
// RETRY) before the Mediator escalates to REPLAN instead.
const MaxRetriesPerTask = 3

// Verdict is the Mediator's full answer: the decision plus whatever
// human-readable reason justifies it, useful for logging and for the
// terminal-state messages the Orchestrator surfaces to the caller.
type Verdict struct {
	Decision state.Decision
	Reason   string
}

// Decide is the Mediator's sole entry point. ss is read to make the
// decision and its counters (FailureObserved, ConsecutiveToolErrors,
// LastToolError) are updated in place — the same value-by-reference
// contract every other role has with SharedState.
func Decide(ss *state.SharedState, result state.ExecutionResult) Verdict {
	if ss.TotalIterations >= MaxTotalIterations {
		return Verdict{state.DecisionFail, "Maximum iterations exceeded"}
	}

	if result.HasErrors() {
		if v, handled := decideToolError(ss, result); handled {
			return v
		}
	}

	switch ss.CurrentPhase {
	case state.PhaseReproduce:
		return decideReproduce(ss, result)
	case state.PhaseRepairAnalyze:
		return decideRepairAnalyze(ss, result)
	case state.PhaseRepairPatch:
		return decideRepairPatch(ss, result)
	case state.PhaseValidate:
		return decideValidate(ss, result)
	default:
		return Verdict{state.DecisionFail, "unknown phase"}
	}
}

// decideToolError applies the tool-level error handling and REPAIR_PATCH
// escalation ladder. It returns handled=false when the error should fall
// through to ordinary phase dispatch — specifically when the tests
// nonetheless ran despite a nonzero exit code, which is not a tool error
// worth escalating.
func decideToolError(ss *state.SharedState, result state.ExecutionResult) (Verdict, bool) {
	if result.LastTestResults != nil && result.LastTestResults.WasRun {
		return Verdict{}, false
	}

	errText := result.FirstError()

	if ss.CurrentPhase == state.PhaseRepairPatch {
		return decideRepairPatchToolError(ss, errText), true
	}

	// REPRODUCE and VALIDATE: retry twice, replan on the third
	// consecutive failure.
	ss.ConsecutiveToolErrors++
	ss.LastToolError = errText
	if ss.ConsecutiveToolErrors >= MaxRetriesPerTask {
		return Verdict{state.DecisionReplan, "repeated tool errors: " + errText}, true
	}
	return Verdict{state.DecisionRetry, "tool error: " + errText}, true
}

// decideRepairPatchToolError implements the REPAIR_PATCH escalation
// ladder: a "not found" error replans immediately (there is nothing to
// retry against), a "multiple times" error gets one retry before
// replanning, everything else follows the ordinary attempts-based ladder.
func decideRepairPatchToolError(ss *state.SharedState, errText string) Verdict {
	ss.ConsecutiveToolErrors++
	ss.LastToolError = errText

	if ss.AttemptsOnCurrentTask >= MaxRetriesPerTask {
		return Verdict{state.DecisionReplan, "repeated tool errors: " + errText}
	}

	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "not found"):
		return Verdict{state.DecisionReplan, "search block not found: " + errText}
	case strings.Contains(lower, "multiple times"):
		if ss.ConsecutiveToolErrors >= 2 {
			return Verdict{state.DecisionReplan, "search block ambiguous twice: " + errText}
		}
		return Verdict{state.DecisionRetry, "search block ambiguous: " + errText}
	default:
		return Verdict{state.DecisionRetry, "tool error: " + errText}
	}
}

func decideReproduce(ss *state.SharedState, result state.ExecutionResult) Verdict {
	tr := result.LastTestResults
	if tr == nil || !tr.WasRun {
		// Keyed off ConsecutiveToolErrors rather than AttemptsOnCurrentTask,
		// as spec.md §4.4 phrases this escalation: within a single REPRODUCE
		// task the two only ever diverge across a RETRY that ran tests
		// successfully in between, which can't happen in this branch since
		// every path through it increments ConsecutiveToolErrors and never
		// resets it. SoftReset zeroes ConsecutiveToolErrors on REPLAN, which
		// also zeroes AttemptsOnCurrentTask, and when the orchestrator
		// revises a plan whose tasks have run out, which does not; outside
		// that last case the two counters stay equal for the life of this
		// task.
		ss.ConsecutiveToolErrors++
		if ss.ConsecutiveToolErrors >= MaxRetriesPerTask {
			return Verdict{state.DecisionReplan, "tests never ran"}
		}
		return Verdict{state.DecisionRetry, "tests have not run yet"}
	}

	if tr.HasFailures() {
		ss.FailureObserved = true
		return Verdict{state.DecisionAdvance, "reproduced failure"}
	}

	if !ss.FailureObserved {
		return Verdict{state.DecisionSuccess, "no repair needed"}
	}

	if len(ss.RepairHistory) == 0 {
		return Verdict{state.DecisionRetry, "unexpected pass without patch"}
	}

	return Verdict{state.DecisionSuccess, "repair confirmed"}
}

func decideRepairAnalyze(ss *state.SharedState, result state.ExecutionResult) Verdict {
	analysis := result.RootCauseAnalysis
	if analysis != nil && analysis.Valid {
		ss.AttemptsOnCurrentTask = 0
		return Verdict{state.DecisionAdvance, "root cause analysis accepted"}
	}

	if ss.AttemptsOnCurrentTask >= MaxRetriesPerTask {
		reason := "root cause analysis repeatedly invalid"
		if analysis != nil {
			reason = analysis.InvalidReason
		}
		return Verdict{state.DecisionReplan, reason}
	}

	reason := "root cause analysis invalid"
	if analysis != nil {
		reason = analysis.InvalidReason
	}
	return Verdict{state.DecisionRetry, reason}
}

func decideRepairPatch(ss *state.SharedState, result state.ExecutionResult) Verdict {
	if len(result.ModifiedFiles) > 0 {
		ss.AttemptsOnCurrentTask = 0
		ss.ConsecutiveToolErrors = 0
		ss.LastToolError = ""
		return Verdict{state.DecisionAdvance, "patch applied"}
	}

	if ss.AttemptsOnCurrentTask >= MaxRetriesPerTask {
		return Verdict{state.DecisionReplan, "no patch produced after repeated attempts"}
	}
	return Verdict{state.DecisionRetry, "no patch produced"}
}

func decideValidate(ss *state.SharedState, result state.ExecutionResult) Verdict {
	tr := result.LastTestResults
	if tr == nil || !tr.WasRun {
		ss.ConsecutiveToolErrors++
		if ss.ConsecutiveToolErrors >= MaxRetriesPerTask {
			return Verdict{state.DecisionReplan, "validation tests never ran"}
		}
		return Verdict{state.DecisionRetry, "validation tests have not run yet"}
	}
	if tr.AllPassed() {
		return Verdict{state.DecisionSuccess, "validation passed"}
	}
	ss.AttemptsOnCurrentTask = 0
	return Verdict{state.DecisionReplan, "validation failed"}
}
