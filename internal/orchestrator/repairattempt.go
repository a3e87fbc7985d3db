package orchestrator

import (
	"strings"

	"github.com/synapsenet/cir/internal/mediator"
	"github.com/synapsenet/cir/internal/state"
)

// buildRepairAttempt captures the live SharedState into a RepairAttempt
// right before softReset discards it, per spec.md §4.1's REPLAN step:
// "build a RepairAttempt from live state BEFORE softReset". index is a
// monotonically increasing counter the caller owns — RepairHistory itself
// is FIFO-capped, so it cannot supply a stable index on its own.
func buildRepairAttempt(index int, ss *state.SharedState, verdict mediator.Verdict) state.RepairAttempt {
	attempt := state.RepairAttempt{
		Index:       index,
		Phase:       ss.CurrentPhase,
		Outcome:     classifyOutcome(ss, verdict),
		Reason:      verdict.Reason,
		FailureLine: ss.FailingArtifactLine,
	}
	if ss.LastRootCauseAnalysis != nil {
		attempt.DiagnosisSummary = ss.LastRootCauseAnalysis.RootCauseSummary
		attempt.FixStrategy = ss.LastRootCauseAnalysis.MinimalFixStrategy
		attempt.SearchBlockUsed = ss.LastRootCauseAnalysis.ProposedSearchBlock
	}
	if ss.LastTestResults != nil {
		attempt.FailureSubtype = ss.LastTestResults.FailureType
	}
	return attempt
}

// classifyOutcome maps a REPLAN verdict's phase and reason text to the
// RepairOutcome taxonomy the next Planner pass reads back out of
// RepairHistory.
func classifyOutcome(ss *state.SharedState, verdict mediator.Verdict) state.RepairOutcome {
	if ss.CurrentPhase == state.PhaseRepairAnalyze {
		if ss.AttemptsOnCurrentTask >= mediator.MaxRetriesPerTask {
			return state.OutcomeAnalysisCapExceeded
		}
		return state.OutcomeAnalysisInvalid
	}

	reason := strings.ToLower(verdict.Reason)
	switch {
	case strings.Contains(reason, "not found"):
		return state.OutcomeSearchFailed
	case strings.Contains(reason, "ambiguous"):
		return state.OutcomeSearchAmbiguous
	case strings.Contains(reason, "syntax"):
		return state.OutcomeSyntaxError
	case strings.Contains(reason, "no patch"):
		return state.OutcomeNoPatch
	default:
		return state.OutcomeValidateFailed
	}
}
