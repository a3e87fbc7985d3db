package state

import "fmt"

// RepairOutcome classifies why a repair cycle was abandoned and sent back
// through REPLAN. It is recorded in RepairAttempt so the next Planner pass
// can see what has already been tried and failed.
type RepairOutcome string

const (
	OutcomeAnalysisInvalid     RepairOutcome = "ANALYSIS_INVALID"
	OutcomeAnalysisCapExceeded RepairOutcome = "ANALYSIS_CAP_EXCEEDED"
	OutcomeSearchFailed        RepairOutcome = "SEARCH_FAILED"
	OutcomeSearchAmbiguous     RepairOutcome = "SEARCH_AMBIGUOUS"
	OutcomeValidateFailed      RepairOutcome = "VALIDATE_FAILED"
	OutcomeSyntaxError         RepairOutcome = "SYNTAX_ERROR"
	OutcomeNoPatch             RepairOutcome = "NO_PATCH"
)

// RepairAttempt is one entry in the bounded repair history SharedState
// keeps across REPLAN cycles: what was tried, in what phase it failed, and
// why. revisePlan folds these into the Planner's prompt so it does not
// propose the same failed fix twice.
type RepairAttempt struct {
	Index            int
	Phase            RepairPhase
	Outcome          RepairOutcome
	DiagnosisSummary string
	FixStrategy      string
	SearchBlockUsed  string
	FailureSubtype   FailureType
	FailureLine      int
	Reason           string
}

// String renders a RepairAttempt as the short plain-text line the Planner
// prompt lists under "previous repair attempts".
func (a RepairAttempt) String() string {
	s := fmt.Sprintf("attempt %d [%s/%s]", a.Index, a.Phase, a.Outcome)
	if a.DiagnosisSummary != "" {
		s += ": " + a.DiagnosisSummary
	}
	if a.Reason != "" {
		s += " (" + a.Reason + ")"
	}
	return s
}

// maxRepairHistory is the FIFO cap SharedState.addRepairAttempt enforces
// per spec.md §4.6 — the five most recent attempts are kept, oldest
// dropped first.
const maxRepairHistory = 5
