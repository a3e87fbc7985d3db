package state

import "errors"

// Sentinel errors for the data-model layer. Orchestrator-level errors
// (workspace snapshot and restore failure) live in internal/orchestrator
// and LLM transport exhaustion in internal/llm; these are the narrower
// construction-time errors for the immutable records in this package.
var (
	ErrEmptyGoal          = errors.New("goal must not be empty")
	ErrEmptyPlan          = errors.New("plan must contain at least one step")
	ErrEmptyPlanStep      = errors.New("plan step must not be empty")
	ErrForbiddenPatchStep = errors.New("REPAIR_PATCH step invariant violated")
)
