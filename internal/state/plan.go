package state

import (
	"encoding/json"
	"strings"
)

// PlannerOutput is the immutable ordered plan produced by the Planner: a
// non-empty sequence of step strings plus a free-text reasoning trace.
type PlannerOutput struct {
	Steps     []string
	Reasoning string
}

// NewPlannerOutput constructs a PlannerOutput, rejecting an empty step list
// or any blank step.
func NewPlannerOutput(steps []string, reasoning string) (PlannerOutput, error) {
	if len(steps) == 0 {
		return PlannerOutput{}, ErrEmptyPlan
	}
	cleaned := make([]string, 0, len(steps))
	for _, s := range steps {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return PlannerOutput{}, ErrEmptyPlanStep
		}
		cleaned = append(cleaned, trimmed)
	}
	return PlannerOutput{Steps: cleaned, Reasoning: reasoning}, nil
}

// forbiddenPatchLexemes are the substrings that must not appear in a
// REPAIR_PATCH step per spec.md §3: a patch step must not itself invoke the
// test runner or restate reproduction — that work belongs to VALIDATE.
var forbiddenPatchLexemes = []string{"run test", "execute test", "reproduce"}

// stepViolatesPatchInvariant reports whether a single REPAIR_PATCH step
// contains a forbidden lexeme, or the co-occurrence of "test" and "run".
func stepViolatesPatchInvariant(step string) bool {
	lower := strings.ToLower(step)
	for _, lexeme := range forbiddenPatchLexemes {
		if strings.Contains(lower, lexeme) {
			return true
		}
	}
	return strings.Contains(lower, "test") && strings.Contains(lower, "run")
}

// ValidateRepairPatchInvariant checks every step against the REPAIR_PATCH
// step-content invariant of spec.md §3. It returns the index of the first
// violating step, or -1 if none violate.
func (p PlannerOutput) ValidateRepairPatchInvariant() int {
	for i, step := range p.Steps {
		if stepViolatesPatchInvariant(step) {
			return i
		}
	}
	return -1
}

// plannerOutputWire is the wire format Planner LLM responses are parsed
// from: `{"repair_steps":[...],"reasoning":"..."}`. The legacy key
// "investigation_steps" is accepted in place of "repair_steps" for prompts
// still using the older phrasing.
type plannerOutputWire struct {
	RepairSteps        []string `json:"repair_steps,omitempty"`
	InvestigationSteps []string `json:"investigation_steps,omitempty"`
	Reasoning          string   `json:"reasoning"`
}

// MarshalJSON emits the canonical "repair_steps" wire format.
func (p PlannerOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(plannerOutputWire{RepairSteps: p.Steps, Reasoning: p.Reasoning})
}

// UnmarshalJSON accepts either "repair_steps" or the legacy
// "investigation_steps" key. It does not itself enforce non-emptiness;
// callers that need a validated PlannerOutput should follow with
// NewPlannerOutput on the decoded fields, or call Validate.
func (p *PlannerOutput) UnmarshalJSON(data []byte) error {
	var wire plannerOutputWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	steps := wire.RepairSteps
	if len(steps) == 0 {
		steps = wire.InvestigationSteps
	}
	p.Steps = steps
	p.Reasoning = wire.Reasoning
	return nil
}

// Validate reports whether the decoded PlannerOutput has at least one
// non-blank step.
func (p PlannerOutput) Validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	for _, s := range p.Steps {
		if strings.TrimSpace(s) == "" {
			return ErrEmptyPlanStep
		}
	}
	return nil
}
