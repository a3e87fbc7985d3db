// Package planner builds phase-specific prompts for the LLM's planning
// role and parses its response into a state.PlannerOutput, substituting a
// deterministic fallback plan whenever the response cannot be parsed.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/state"
)

// ErrPlannerExhausted names the failure to produce any valid plan.
// GeneratePlan and RevisePlan never return it: an unusable LLM response is
// always replaced by the phase fallback plan.
var ErrPlannerExhausted = errors.New("planner unable to generate valid plan")

// Planner turns a SharedState's current phase and history into an LLM
// call, then into a validated state.PlannerOutput.
type Planner struct {
	Client llm.Client
}

// New builds a Planner over the given LLM transport.
func New(client llm.Client) *Planner {
	return &Planner{Client: client}
}

// GeneratePlan builds the ordinary phase-specific prompt, invokes the LLM
// under the Planner role, and parses the result. On any parse failure or
// empty step list it substitutes the phase-appropriate fallback instead of
// returning an error — spec.md gives the Planner exactly one escalation
// path (three consecutive failures, handled by the caller), not a hard
// failure on the first bad response.
func (p *Planner) GeneratePlan(ctx context.Context, ss *state.SharedState) (state.PlannerOutput, error) {
	prompt := buildPrompt(ss)
	return p.generate(ctx, ss, prompt)
}

// RevisePlan is the REPLAN variant: it folds the abandoned diagnosis and
// repair history into the prompt and otherwise behaves like GeneratePlan.
func (p *Planner) RevisePlan(ctx context.Context, ss *state.SharedState) (state.PlannerOutput, error) {
	prompt := buildRevisePrompt(ss)
	return p.generate(ctx, ss, prompt)
}

func (p *Planner) generate(ctx context.Context, ss *state.SharedState, prompt string) (state.PlannerOutput, error) {
	if p.Client == nil {
		return fallbackFor(ss), nil
	}

	raw, err := p.Client.Generate(ctx, llm.RolePlanner, prompt, llm.CanonicalTemperature(llm.RolePlanner))
	if err != nil {
		return fallbackFor(ss), nil
	}

	out, parseErr := parsePlan(raw)
	if parseErr != nil || len(out.Steps) == 0 {
		return fallbackFor(ss), nil
	}
	return out, nil
}

// parsePlan strips any fenced code block markers the LLM wrapped its
// response in, then scans to the first '{' to tolerate a prose preamble,
// and decodes the canonical plan JSON shape (accepting the legacy
// "investigation_steps" key via state.PlannerOutput.UnmarshalJSON).
func parsePlan(raw string) (state.PlannerOutput, error) {
	stripped := strings.ReplaceAll(raw, "```json", "")
	stripped = strings.ReplaceAll(stripped, "```", "")

	idx := strings.IndexByte(stripped, '{')
	if idx < 0 {
		return state.PlannerOutput{}, fmt.Errorf("planner response contains no JSON object")
	}
	candidate := stripped[idx:]

	var out state.PlannerOutput
	if err := out.UnmarshalJSON([]byte(candidate)); err != nil {
		return state.PlannerOutput{}, err
	}
	return out, nil
}

// Fallback returns the deterministic phase-appropriate plan for ss's
// current phase — the same substitution GeneratePlan falls back to on a
// parse failure. Exposed for the Orchestrator's REPAIR_PATCH
// invariant-retry path, which needs the safe fallback directly without
// spending another LLM round trip first.
func Fallback(ss *state.SharedState) state.PlannerOutput {
	return fallbackFor(ss)
}

// fallbackFor returns the deterministic phase-appropriate plan spec.md
// §4.2 mandates when the LLM's response cannot be used.
func fallbackFor(ss *state.SharedState) state.PlannerOutput {
	switch ss.CurrentPhase {
	case state.PhaseReproduce:
		if ss.StructureDiscovered {
			return state.PlannerOutput{
				Steps:     []string{"Run the test suite to establish the current failure."},
				Reasoning: "fallback: structure already discovered",
			}
		}
		return state.PlannerOutput{
			Steps: []string{
				"Discover the project structure.",
				"Run the test suite to establish the current failure.",
			},
			Reasoning: "fallback: structure not yet discovered",
		}
	case state.PhaseRepairAnalyze:
		return state.PlannerOutput{
			Steps:     []string{"Produce a structured root-cause diagnosis with no tool calls."},
			Reasoning: "fallback: analysis phase",
		}
	case state.PhaseRepairPatch:
		return state.PlannerOutput{
			Steps:     []string{repairPatchFallbackStep(ss)},
			Reasoning: "fallback: patch phase",
		}
	case state.PhaseValidate:
		return state.PlannerOutput{
			Steps:     []string{"Run the test suite."},
			Reasoning: "fallback: validation phase",
		}
	default:
		return state.PlannerOutput{
			Steps:     []string{"Run the test suite."},
			Reasoning: "fallback: unknown phase",
		}
	}
}

// repairPatchFallbackStep names the diagnosed artifact when one is known,
// validated analysis preferred over the analyzer's raw heuristic.
func repairPatchFallbackStep(ss *state.SharedState) string {
	if ss.LastRootCauseAnalysis != nil && ss.LastRootCauseAnalysis.Valid {
		return fmt.Sprintf("Read and patch %s.", ss.LastRootCauseAnalysis.ArtifactPath)
	}
	if ss.FailingArtifactPath != "" {
		return fmt.Sprintf("Read and patch %s.", ss.FailingArtifactPath)
	}
	return "Read the diagnosed artifact and apply a patch."
}
