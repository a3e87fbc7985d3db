// Package orchestrator drives one Controlled Iterative Repair run end to
// end: generate a plan, execute its current task, critique the outcome,
// let the Mediator decide, and act on that decision — ADVANCE, RETRY,
// REPLAN, SUCCESS, or FAIL — until the run terminates or the iteration
// cap is reached.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/synapsenet/cir/internal/config"
	"github.com/synapsenet/cir/internal/critic"
	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/executor"
	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/logging"
	"github.com/synapsenet/cir/internal/mediator"
	"github.com/synapsenet/cir/internal/metrics"
	"github.com/synapsenet/cir/internal/planner"
	"github.com/synapsenet/cir/internal/state"
	"github.com/synapsenet/cir/internal/tools"
	"github.com/synapsenet/cir/internal/tracing"
)

// maxNullTaskStreak is how many consecutive iterations may fetch a null
// current task (an exhausted or empty plan) before the run fails outright
// per spec.md §4.1.
const maxNullTaskStreak = 3

// maxRepairPatchInvariantRetries bounds how many times a freshly
// generated REPAIR_PATCH plan may violate the step-content invariant
// before the Orchestrator gives up on the LLM and substitutes the safe
// deterministic fallback.
const maxRepairPatchInvariantRetries = 2

// ErrWorkspaceRestoreFailed marks a REPLAN whose snapshot restore did not
// succeed. It is fatal per spec.md §7 — a partially restored workspace is
// the one situation the run must not continue over.
var ErrWorkspaceRestoreFailed = errors.New("workspace restore failed")

// ErrSnapshotFailed marks a failed attempt to capture the pre-repair
// workspace snapshot on the first ADVANCE out of REPRODUCE.
var ErrSnapshotFailed = errors.New("workspace snapshot failed")

// Orchestrator owns the dependencies a single workspace's repair runs
// share: the LLM-backed Planner and Critic (stateless across runs), the
// workspace itself, and the ambient logging/metrics/tracing surface. Each
// RunTask call builds its own SharedState, tool Registry, and Executor —
// those are scoped to one run, not shared across them.
type Orchestrator struct {
	Workspace   *diff.Workspace
	Planner     *planner.Planner
	Critic      *critic.Critic
	Client      llm.Client
	Interpreter []string
	SourceExt   string
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
}

// New builds an Orchestrator from a resolved Config and LLM transport.
// logger and m may be nil, in which case a stderr-only default logger and
// a freshly registered metrics instance are used.
func New(cfg config.Config, client llm.Client, logger *logging.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	root, err := filepath.Abs(cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolving workspace path: %w", err)
	}
	ws, err := diff.NewWorkspace(root)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if m == nil {
		_, m = metrics.NewRegistry()
	}
	interpreter := strings.Fields(cfg.Interpreter)
	if len(interpreter) == 0 {
		return nil, fmt.Errorf("orchestrator: no interpreter configured")
	}
	return &Orchestrator{
		Workspace:   ws,
		Planner:     planner.New(client),
		Critic:      critic.New(client),
		Client:      client,
		Interpreter: interpreter,
		SourceExt:   cfg.SourceExt,
		Logger:      logger,
		Metrics:     m,
	}, nil
}

// buildRegistry wires a fresh tool Registry bound to this run's
// SharedState and the Orchestrator's workspace. A Registry is never
// reused across runs: every read/write/discovery tool caches its effects
// directly onto the SharedState pointer it was constructed with.
func (o *Orchestrator) buildRegistry(ss *state.SharedState) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(&tools.ReadFileTool{WS: o.Workspace, SS: ss})
	reg.Register(&tools.WriteFileTool{WS: o.Workspace, SS: ss})
	reg.Register(&tools.ReplaceInFileTool{WS: o.Workspace, SS: ss})
	reg.Register(&tools.GrepTool{WS: o.Workspace})
	reg.Register(&tools.ListFilesTool{WS: o.Workspace, SS: ss})
	reg.Register(&tools.FileTreeTool{WS: o.Workspace, SS: ss})
	reg.Register(&tools.RunTestsTool{WS: o.Workspace, SS: ss, Interpreter: o.Interpreter})
	return reg
}

// RunTask drives one runTask(goal) invocation to completion: it never
// returns a Go error — every termination path, including an invalid
// goal, is folded into the returned Result per spec.md §7.
func (o *Orchestrator) RunTask(ctx context.Context, goal string) Result {
	start := time.Now()
	caseID := uuid.NewString()
	logger := o.Logger.With("run_id", caseID)

	g := state.Goal(goal)
	if err := g.Validate(); err != nil {
		logger.Warn("rejecting run", "error", err)
		return Result{Status: "invalid goal", Details: err.Error()}
	}

	ctx, runSpan := tracing.StartRun(ctx, caseID)
	defer runSpan.End()

	ss := state.NewSharedState(g)
	reg := o.buildRegistry(ss)
	exec := executor.New(o.Client, reg)

	var snapshot *diff.Snapshot
	nullTaskStreak := 0
	repairAttemptIndex := 0

	plan, _ := o.Planner.GeneratePlan(ctx, ss)
	ss.CurrentPlan = plan
	ss.CurrentTaskIndex = 0

	logger.Info("run started", "goal", goal)

	for {
		if ss.TotalIterations >= mediator.MaxTotalIterations {
			return o.terminateFail(ss, snapshot, logger, caseID, start, "Maximum iterations exceeded")
		}
		ss.TotalIterations++
		o.Metrics.IterationsTotal.Inc()
		iterCtx, iterSpan := tracing.StartIteration(ctx, ss.TotalIterations)

		task, ok := currentTask(ss)
		if !ok {
			nullTaskStreak++
			logger.Warn("no current task", "phase", ss.CurrentPhase, "streak", nullTaskStreak)
			if nullTaskStreak >= maxNullTaskStreak {
				iterSpan.End()
				return o.terminateFail(ss, snapshot, logger, caseID, start, "Planner unable to generate valid plan")
			}
			ss.SoftReset()
			ss.CurrentPhase = state.PhaseReproduce
			revised, _ := o.Planner.RevisePlan(iterCtx, ss)
			ss.CurrentPlan = revised
			ss.CurrentTaskIndex = 0
			iterSpan.End()
			continue
		}
		nullTaskStreak = 0
		ss.AttemptsOnCurrentTask++

		phaseCtx, phaseSpan := tracing.StartPhase(iterCtx, string(ss.CurrentPhase))
		result := exec.Execute(phaseCtx, task, ss)
		if result.LastTestResults != nil {
			ss.SetLastTestResults(*result.LastTestResults)
		}
		feedback := o.Critic.Analyze(phaseCtx, result, ss)
		verdict := mediator.Decide(ss, result)
		phaseSpan.End()

		logger.Info("mediator decision",
			"phase", ss.CurrentPhase, "decision", verdict.Decision, "reason", verdict.Reason,
			"risk", feedback.RiskLevel, "satisfaction", feedback.Satisfaction)
		o.recordToolErrors(ss, result)

		switch verdict.Decision {
		case state.DecisionSuccess:
			iterSpan.End()
			return o.terminateSuccess(ss, snapshot, logger, caseID, start)

		case state.DecisionFail:
			iterSpan.End()
			return o.terminateFail(ss, snapshot, logger, caseID, start, verdict.Reason)

		case state.DecisionAdvance:
			if err := o.advance(iterCtx, ss, &snapshot, logger); err != nil {
				iterSpan.End()
				return o.terminateFail(ss, snapshot, logger, caseID, start, err.Error())
			}

		case state.DecisionRetry:
			// SharedState is left untouched; the same task runs again.

		case state.DecisionReplan:
			o.Metrics.ReplansTotal.Inc()
			if err := o.replan(iterCtx, ss, &snapshot, &repairAttemptIndex, verdict, logger); err != nil {
				iterSpan.End()
				return o.terminateFail(ss, snapshot, logger, caseID, start, err.Error())
			}
		}
		iterSpan.End()
	}
}

// currentTask fetches the plan step at ss.CurrentTaskIndex, returning
// ok=false when the index has run past the end of the plan (or the plan
// is empty) — the "null current task" condition spec.md §4.1 step 2.b
// handles by revising the plan rather than failing immediately.
func currentTask(ss *state.SharedState) (string, bool) {
	if ss.CurrentTaskIndex < 0 || ss.CurrentTaskIndex >= len(ss.CurrentPlan.Steps) {
		return "", false
	}
	return ss.CurrentPlan.Steps[ss.CurrentTaskIndex], true
}

// advance applies one ADVANCE decision: the phase transition table of
// spec.md §4.1, including the first-ADVANCE-out-of-REPRODUCE snapshot,
// the REPAIR_ANALYZE-entry root-cause reset, and the REPAIR_PATCH
// invariant retry/fallback. Every phase-changing transition resets
// attemptsOnCurrentTask to zero, matching the "reset task attempts" clause the spec repeats at
// each transition regardless of which phase it is leaving.
func (o *Orchestrator) advance(ctx context.Context, ss *state.SharedState, snapshot **diff.Snapshot, logger *logging.Logger) error {
	next, ok := state.DefaultStateMachine.NextOnAdvance(ss.CurrentPhase)
	if !ok {
		// VALIDATE has no phase successor; an ADVANCE here would mean
		// moving to the next task within the same plan rather than
		// changing phase. The Mediator never actually emits ADVANCE from
		// VALIDATE (it resolves straight to SUCCESS or REPLAN), so this
		// branch is unreached in practice — kept for fidelity with the
		// documented transition table.
		ss.CurrentTaskIndex++
		return nil
	}

	ss.AttemptsOnCurrentTask = 0

	switch next {
	case state.PhaseRepairAnalyze:
		if *snapshot == nil {
			snap, err := o.Workspace.Snapshot(".", diff.DefaultSnapshotPredicate(o.SourceExt, ss.FailingArtifactPath))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
			}
			*snapshot = snap
		}
		ss.LastRootCauseAnalysis = nil
		ss.CurrentPhase = state.PhaseRepairAnalyze
		plan, _ := o.Planner.GeneratePlan(ctx, ss)
		ss.CurrentPlan = plan
		ss.CurrentTaskIndex = 0

	case state.PhaseRepairPatch:
		ss.CurrentPhase = state.PhaseRepairPatch
		ss.CurrentPlan = o.planRepairPatch(ctx, ss)
		ss.CurrentTaskIndex = 0

	case state.PhaseValidate:
		ss.CurrentPhase = state.PhaseValidate
		plan, _ := o.Planner.GeneratePlan(ctx, ss)
		ss.CurrentPlan = plan
		ss.CurrentTaskIndex = 0
	}

	logger.Info("phase advanced", "phase", ss.CurrentPhase)
	return nil
}

// planRepairPatch generates a REPAIR_PATCH plan and validates it against
// the step-content invariant (no step may itself run or reproduce
// tests), retrying the LLM up to maxRepairPatchInvariantRetries times
// before substituting the deterministic safe fallback.
func (o *Orchestrator) planRepairPatch(ctx context.Context, ss *state.SharedState) state.PlannerOutput {
	for attempt := 0; attempt <= maxRepairPatchInvariantRetries; attempt++ {
		plan, _ := o.Planner.GeneratePlan(ctx, ss)
		if plan.ValidateRepairPatchInvariant() < 0 {
			return plan
		}
	}
	return planner.Fallback(ss)
}

// replan applies one REPLAN decision: capture a RepairAttempt from live
// state before softReset discards it (only when leaving a repair phase),
// restore the workspace snapshot if one exists (fatal on failure), clear
// modified files, soft-reset, reset task attempts, drop back to
// REPRODUCE, and revise the plan. lastRootCauseAnalysis is deliberately left untouched — it informs
// the revised plan's prompt.
func (o *Orchestrator) replan(ctx context.Context, ss *state.SharedState, snapshot **diff.Snapshot, repairAttemptIndex *int, verdict mediator.Verdict, logger *logging.Logger) error {
	ss.ReplanCount++

	if ss.CurrentPhase == state.PhaseRepairAnalyze || ss.CurrentPhase == state.PhaseRepairPatch {
		ss.AddRepairAttempt(buildRepairAttempt(*repairAttemptIndex, ss, verdict))
		*repairAttemptIndex++
	}

	if *snapshot != nil {
		predicate := diff.DefaultSnapshotPredicate(o.SourceExt, ss.FailingArtifactPath)
		if err := o.Workspace.Restore(".", *snapshot, predicate); err != nil {
			return fmt.Errorf("%w: %v", ErrWorkspaceRestoreFailed, err)
		}
		*snapshot = nil
	}

	ss.ClearModifiedFiles()
	ss.SoftReset()
	ss.AttemptsOnCurrentTask = 0
	ss.CurrentPhase = state.PhaseReproduce

	plan, _ := o.Planner.RevisePlan(ctx, ss)
	ss.CurrentPlan = plan
	ss.CurrentTaskIndex = 0

	logger.Warn("replanning", "reason", verdict.Reason, "replan_count", ss.ReplanCount)
	return nil
}

// recordToolErrors increments the per-tool/per-phase error counter for
// every failed tool call in one ExecutionResult.
func (o *Orchestrator) recordToolErrors(ss *state.SharedState, result state.ExecutionResult) {
	for _, outcome := range result.ToolOutcomes {
		if outcome.Failed() {
			o.Metrics.ToolErrorsTotal.WithLabelValues(outcome.Tool, string(ss.CurrentPhase)).Inc()
		}
	}
}

// terminateSuccess exports metadata (including the unified-diff audit
// trail of every modified file against its pre-repair snapshot), logs
// the benchmark line, updates the terminal-outcome metrics, and builds
// the success Result: details lists the modified file paths, per
// spec.md §7.
func (o *Orchestrator) terminateSuccess(ss *state.SharedState, snapshot *diff.Snapshot, logger *logging.Logger, caseID string, start time.Time) Result {
	if err := o.exportMetadata(ss, snapshot, 0, true); err != nil {
		logger.Error("exporting metadata", "error", err)
	}
	o.logBenchmark(ss, caseID, start, true, "SUCCESS")
	o.Metrics.RunOutcomesTotal.WithLabelValues("success").Inc()
	o.Metrics.RunDurationSecs.Observe(time.Since(start).Seconds())
	logger.Info("run succeeded", "iterations", ss.TotalIterations)
	details := "No files modified"
	if len(ss.ModifiedFiles) > 0 {
		details = strings.Join(ss.ModifiedFiles, ", ")
	}
	return Result{
		Success:         true,
		TotalIterations: ss.TotalIterations,
		Status:          "SUCCESS",
		Details:         details,
	}
}

// terminateFail exports metadata (including the unified-diff audit trail
// of any file left modified when the run gave up), logs the benchmark
// line, updates the terminal-outcome metrics, and builds the failure
// Result carrying reason in both status and details.
func (o *Orchestrator) terminateFail(ss *state.SharedState, snapshot *diff.Snapshot, logger *logging.Logger, caseID string, start time.Time, reason string) Result {
	if err := o.exportMetadata(ss, snapshot, 1, false); err != nil {
		logger.Error("exporting metadata", "error", err)
	}
	o.logBenchmark(ss, caseID, start, false, "FAIL")
	o.Metrics.RunOutcomesTotal.WithLabelValues("failure").Inc()
	o.Metrics.RunDurationSecs.Observe(time.Since(start).Seconds())
	logger.Warn("run failed", "reason", reason, "iterations", ss.TotalIterations)
	return Result{
		Success:         false,
		TotalIterations: ss.TotalIterations,
		Status:          reason,
		Details:         reason,
	}
}
