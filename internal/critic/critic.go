// Package critic produces an advisory critique of one Executor pass: a
// free-text LLM assessment plus heuristic risk and satisfaction scores
// derived solely from the execution outcome. Nothing here feeds the
// Mediator's transition decision — spec.md §4.5 is explicit that the
// Critic's numeric outputs are advisory only.
package critic

import (
	"context"

	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/state"
)

// RiskLevel classifies how risky an execution step looks, from the
// heuristic alone — no LLM judgment involved.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Feedback is the Critic's full output for one execution.
type Feedback struct {
	Critique     string
	RiskLevel    RiskLevel
	Satisfaction float64
}

// Critic builds a critique prompt and asks the LLM for free-text
// commentary, attaching heuristic attributes computed independently of
// the LLM's response.
type Critic struct {
	Client llm.Client
}

// New builds a Critic over the given LLM transport.
func New(client llm.Client) *Critic {
	return &Critic{Client: client}
}

// Analyze builds the bounded critique prompt, invokes the LLM under the
// Critic role, and attaches the heuristic risk level and satisfaction
// score. An LLM failure yields empty critique text but does not prevent
// the heuristic scoring — those never depend on the LLM at all.
func (c *Critic) Analyze(ctx context.Context, result state.ExecutionResult, ss *state.SharedState) Feedback {
	fb := Feedback{
		RiskLevel:    riskLevel(result),
		Satisfaction: satisfaction(result),
	}

	if c.Client == nil {
		return fb
	}

	prompt := buildPrompt(result, ss)
	critique, err := c.Client.Generate(ctx, llm.RoleCritic, prompt, llm.CanonicalTemperature(llm.RoleCritic))
	if err != nil {
		return fb
	}
	fb.Critique = critique
	return fb
}

// hasErrors and testsFailed are the two heuristic inputs riskLevel and
// satisfaction both key off.
func hasErrors(result state.ExecutionResult) bool {
	return result.HasErrors()
}

func testsFailed(result state.ExecutionResult) bool {
	return result.LastTestResults != nil && result.LastTestResults.HasFailures()
}

// riskLevel is HIGH when both tool errors occurred and tests failed,
// MEDIUM when exactly one did, LOW otherwise.
func riskLevel(result state.ExecutionResult) RiskLevel {
	errs, failed := hasErrors(result), testsFailed(result)
	switch {
	case errs && failed:
		return RiskHigh
	case errs || failed:
		return RiskMedium
	default:
		return RiskLow
	}
}

// satisfaction is 1.0 for a clean pass with no tool errors, 0.2 when both
// problems occurred, 0.5 for a mixed outcome.
func satisfaction(result state.ExecutionResult) float64 {
	errs, failed := hasErrors(result), testsFailed(result)
	switch {
	case !errs && !failed:
		return 1.0
	case errs && failed:
		return 0.2
	default:
		return 0.5
	}
}
