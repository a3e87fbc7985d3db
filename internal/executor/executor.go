// Package executor carries out one planned task: the common tool path for
// REPRODUCE/REPAIR_PATCH/VALIDATE (prompt, parse tool calls, gate, dispatch)
// and the distinct tool-less path REPAIR_ANALYZE uses to produce a
// RootCauseAnalysis directly.
package executor

import (
	"context"

	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/state"
	"github.com/synapsenet/cir/internal/tools"
)

// Executor is the single execute(task, state) entry point spec.md §4.3
// describes.
type Executor struct {
	Client   llm.Client
	Registry *tools.Registry
}

// New builds an Executor over the given LLM transport and tool registry.
func New(client llm.Client, registry *tools.Registry) *Executor {
	return &Executor{Client: client, Registry: registry}
}

// Execute carries out one task against the current phase, mutating ss in
// place (tool calls, cache state, test results) and returning the
// ExecutionResult the Critic and Mediator evaluate.
func (e *Executor) Execute(ctx context.Context, task string, ss *state.SharedState) state.ExecutionResult {
	if ss.CurrentPhase == state.PhaseRepairAnalyze {
		return e.executeAnalyze(ctx, task, ss)
	}
	return e.executeCommon(ctx, task, ss)
}

func (e *Executor) executeCommon(ctx context.Context, task string, ss *state.SharedState) state.ExecutionResult {
	allowlist := tools.PhaseAllowlist(ss.CurrentPhase)
	allowed := e.Registry.GetAllowed(allowlist)

	prompt := buildCommonPrompt(task, ss, allowed)
	calls := e.proposeToolCalls(ctx, prompt)

	calls = tools.ApplyDiscoveryGate(ss.CurrentPhase, ss.StructureDiscovered, calls)
	calls = tools.ApplyRepairEvidenceGate(ss.CurrentPhase, ss, calls)
	calls = tools.ApplyPhaseFilter(allowlist, calls)

	result := state.ExecutionResult{TaskDescription: task}
	for _, call := range calls {
		ss.ToolCallCount++
		output, err := e.Registry.Dispatch(ctx, allowlist, call.Tool, call.Args)
		outcome := state.ToolOutcome{Tool: call.Tool, Args: call.Args, Output: output}
		if err != nil {
			outcome.Err = err.Error()
		}
		result.ToolOutcomes = append(result.ToolOutcomes, outcome)
	}

	result.LastTestResults = ss.LastTestResults
	result.ModifiedFiles = ss.ModifiedFiles
	return result
}

// proposeToolCalls invokes the LLM under the Executor role and parses its
// tool_calls response. If the response is structurally unparseable it
// re-prompts once with an enforcement reminder; a second failure yields
// zero tool calls rather than an error.
func (e *Executor) proposeToolCalls(ctx context.Context, prompt string) []tools.ToolCallPlan {
	if e.Client == nil {
		return nil
	}

	raw, err := e.Client.Generate(ctx, llm.RoleExecutor, prompt, llm.CanonicalTemperature(llm.RoleExecutor))
	if err != nil {
		return nil
	}
	calls, parseErr := parseToolCalls(raw)
	if parseErr == nil {
		return calls
	}

	raw, err = e.Client.Generate(ctx, llm.RoleExecutor, prompt+enforcementReminder, llm.CanonicalTemperature(llm.RoleExecutor))
	if err != nil {
		return nil
	}
	calls, parseErr = parseToolCalls(raw)
	if parseErr != nil {
		return nil
	}
	return calls
}

// executeAnalyze is the REPAIR_ANALYZE tool-less path: build the analysis
// prompt, invoke the LLM, parse and deterministically validate the
// resulting RootCauseAnalysis against SharedState, and store it whether
// valid or not — the Mediator inspects the result directly.
func (e *Executor) executeAnalyze(ctx context.Context, task string, ss *state.SharedState) state.ExecutionResult {
	result := state.ExecutionResult{TaskDescription: task}

	if e.Client == nil {
		return result
	}

	prompt := buildAnalysisPrompt(task, ss)
	raw, err := e.Client.Generate(ctx, llm.RoleExecutor, prompt, llm.CanonicalTemperature(llm.RoleExecutor))
	if err != nil {
		return result
	}

	analysis, parseErr := parseRootCause(raw)
	if parseErr != nil {
		return result
	}

	analysis.ValidateAgainst(ss)
	ss.LastRootCauseAnalysis = &analysis
	result.RootCauseAnalysis = &analysis
	return result
}
