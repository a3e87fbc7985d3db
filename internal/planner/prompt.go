package planner

import (
	"fmt"
	"strings"

	"github.com/synapsenet/cir/internal/state"
)

const planJSONInstruction = `Respond with a single JSON object of the form ` +
	`{"repair_steps": ["...", "..."], "reasoning": "..."}. Do not wrap it in ` +
	`prose beyond a single leading sentence if you need one; the object must ` +
	`be present and parseable.`

// buildPrompt constructs the phase-specific plan-generation prompt.
// Prompt content deliberately differs by phase: REPRODUCE only needs to
// know whether the workspace has been explored yet, REPAIR_ANALYZE needs
// the raw failure text but no tool vocabulary at all, REPAIR_PATCH needs
// whatever diagnosis is available, and VALIDATE needs nothing but the goal.
func buildPrompt(ss *state.SharedState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", ss.Goal)

	switch ss.CurrentPhase {
	case state.PhaseReproduce:
		b.WriteString(reproducePrompt(ss))
	case state.PhaseRepairAnalyze:
		b.WriteString(repairAnalyzePrompt(ss))
	case state.PhaseRepairPatch:
		b.WriteString(repairPatchPrompt(ss))
	case state.PhaseValidate:
		b.WriteString(validatePrompt())
	}

	b.WriteString("\n\n")
	b.WriteString(planJSONInstruction)
	return b.String()
}

func reproducePrompt(ss *state.SharedState) string {
	if !ss.StructureDiscovered {
		return "The repair phase is REPRODUCE. The workspace layout is not yet " +
			"known. Plan steps that first discover the project structure, then " +
			"run the test suite to establish the current failure (if any)."
	}
	return "The repair phase is REPRODUCE. The workspace structure has already " +
		"been discovered. Plan a step that runs the test suite to establish " +
		"the current failure (if any)."
}

func repairAnalyzePrompt(ss *state.SharedState) string {
	var b strings.Builder
	b.WriteString("The repair phase is REPAIR_ANALYZE. No tools are available " +
		"in this phase — you must produce a structured diagnosis directly. ")
	b.WriteString("Plan exactly one task instructing the model to analyze the " +
		"failure and emit a RootCauseAnalysis JSON object with fields " +
		"artifactPath, artifactLine, rootCauseSummary, causalExplanation, " +
		"minimalFixStrategy, proposedSearchBlock, and " +
		"whyPreviousAttemptsFailed.\n\n")

	if ss.FailingArtifactPath != "" {
		fmt.Fprintf(&b, "The failure analyzer identified %s", ss.FailingArtifactPath)
		if ss.FailingArtifactLine > 0 {
			fmt.Fprintf(&b, " near line %d", ss.FailingArtifactLine)
		}
		b.WriteString(" as context only — it is not necessarily the correct target.\n\n")
	}

	if ss.LastTestResults != nil {
		b.WriteString("Raw failure output (first 40 lines):\n")
		b.WriteString(firstNLines(ss.LastTestResults.RawOutput, 40))
		b.WriteString("\n\n")
	}

	if len(ss.RepairHistory) > 0 {
		b.WriteString("Prior failed diagnoses:\n")
		b.WriteString(renderRepairHistory(ss.RepairHistory))
	}

	return b.String()
}

func repairPatchPrompt(ss *state.SharedState) string {
	var b strings.Builder
	b.WriteString("The repair phase is REPAIR_PATCH. Plan exactly one task that " +
		"both reads the target file and applies a replace_in_file edit in the " +
		"same response.\n\n")

	switch {
	case ss.LastRootCauseAnalysis != nil && ss.LastRootCauseAnalysis.Valid:
		rc := ss.LastRootCauseAnalysis
		fmt.Fprintf(&b, "Validated diagnosis targets %s", rc.ArtifactPath)
		if rc.ArtifactLine > 0 {
			fmt.Fprintf(&b, " near line %d", rc.ArtifactLine)
		}
		b.WriteString(fmt.Sprintf(": %s\n", rc.MinimalFixStrategy))
	case ss.FailingArtifactPath != "":
		fmt.Fprintf(&b, "No validated diagnosis is available. The failure "+
			"analyzer identified %s", ss.FailingArtifactPath)
		if ss.FailingArtifactLine > 0 {
			fmt.Fprintf(&b, " near line %d", ss.FailingArtifactLine)
		}
		b.WriteString(" as the likely target.\n")
	}

	return b.String()
}

func validatePrompt() string {
	return "The repair phase is VALIDATE. Plan a single task that runs the " +
		"test suite."
}

// buildRevisePrompt is the REPLAN variant: it starts from the ordinary
// REPRODUCE prompt (a REPLAN always resets to REPRODUCE) and appends the
// abandoned diagnosis and the structured repair history, instructing that
// the first task must re-run the tests.
func buildRevisePrompt(ss *state.SharedState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", ss.Goal)
	b.WriteString(reproducePrompt(ss))
	b.WriteString("\n\nThe previous repair attempt was abandoned and the plan " +
		"is being revised. The first task in the new plan must re-run the " +
		"test suite before anything else.\n\n")

	if ss.LastRootCauseAnalysis != nil {
		rc := ss.LastRootCauseAnalysis
		b.WriteString("The previous root-cause analysis, which led to a failed " +
			"patch attempt, was:\n")
		fmt.Fprintf(&b, "  artifact: %s:%d\n  summary: %s\n  fix strategy: %s\n\n",
			rc.ArtifactPath, rc.ArtifactLine, rc.RootCauseSummary, rc.MinimalFixStrategy)
	}

	if len(ss.RepairHistory) > 0 {
		b.WriteString("Structured repair history:\n")
		b.WriteString(renderRepairHistory(ss.RepairHistory))
	}

	b.WriteString("\n\n")
	b.WriteString(planJSONInstruction)
	return b.String()
}

func renderRepairHistory(history []state.RepairAttempt) string {
	var b strings.Builder
	for _, a := range history {
		b.WriteString(a.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func firstNLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
