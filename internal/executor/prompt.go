package executor

import (
	"fmt"
	"strings"

	"github.com/synapsenet/cir/internal/state"
	"github.com/synapsenet/cir/internal/tools"
)

const toolCallJSONInstruction = `Respond with a single JSON object of the form ` +
	`{"reasoning": "...", "tool_calls": [{"tool": "name", "args": {...}}, ...]}.`

// buildCommonPrompt assembles the prompt every phase but REPAIR_ANALYZE
// uses: the task text, whatever is known about the current failure, a
// windowed excerpt of the failing file if it has been cached, feedback
// from a previous tool error, the validated diagnosis when one exists, and
// the list of tools the model may call.
func buildCommonPrompt(task string, ss *state.SharedState, allowed []tools.Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)

	writeTestSummary(&b, ss)
	writeFailingArtifact(&b, ss)
	writeToolErrorFeedback(&b, ss)
	if ss.CurrentPhase == state.PhaseRepairPatch {
		writeValidatedAnalysis(&b, ss)
	}

	b.WriteString("\nAvailable tools:\n")
	for _, t := range allowed {
		d := t.Definition()
		fmt.Fprintf(&b, "  %s: %s\n", d.Name, d.Description)
	}

	b.WriteString("\n")
	b.WriteString(toolCallJSONInstruction)
	return b.String()
}

func writeTestSummary(b *strings.Builder, ss *state.SharedState) {
	tr := ss.LastTestResults
	if tr == nil {
		return
	}
	fmt.Fprintf(b, "Last test run: wasRun=%v exitCode=%d failureType=%s\n",
		tr.WasRun, tr.ExitCode, tr.FailureType)
	if tr.ErrorSnippet != "" {
		fmt.Fprintf(b, "Error snippet: %s\n", tr.ErrorSnippet)
	}
	if tr.FailureType == state.FailureCollectionError {
		fmt.Fprintf(b, "Collection failure output (truncated):\n%s\n", firstNLines(tr.RawOutput, 40))
	}
	b.WriteString("\n")
}

func writeFailingArtifact(b *strings.Builder, ss *state.SharedState) {
	if ss.FailingArtifactPath == "" {
		return
	}
	fmt.Fprintf(b, "Failing artifact: %s", ss.FailingArtifactPath)
	if ss.FailingArtifactLine > 0 {
		fmt.Fprintf(b, ":%d", ss.FailingArtifactLine)
	}
	b.WriteString("\n")

	if entry, ok := ss.RecentFileReads[ss.FailingArtifactPath]; ok {
		b.WriteString("Windowed content of the failing artifact:\n")
		b.WriteString(fileWindow(entry.Content, ss.FailingArtifactLine))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeToolErrorFeedback(b *strings.Builder, ss *state.SharedState) {
	if ss.LastToolError == "" {
		return
	}
	lower := strings.ToLower(ss.LastToolError)
	fmt.Fprintf(b, "Previous tool call failed: %s\n", ss.LastToolError)
	switch {
	case strings.Contains(lower, "not found"):
		b.WriteString("The search block did not match anything in the file. " +
			"Re-read the file before proposing another replace_in_file call.\n")
	case strings.Contains(lower, "multiple times"):
		b.WriteString("The search block matched more than one location. " +
			"Include more surrounding context so the match is unique.\n")
	}
	b.WriteString("\n")
}

func writeValidatedAnalysis(b *strings.Builder, ss *state.SharedState) {
	rc := ss.LastRootCauseAnalysis
	if rc == nil || !rc.Valid {
		return
	}
	fmt.Fprintf(b, "Validated root-cause analysis:\n")
	fmt.Fprintf(b, "  artifact: %s:%d\n", rc.ArtifactPath, rc.ArtifactLine)
	fmt.Fprintf(b, "  summary: %s\n", rc.RootCauseSummary)
	fmt.Fprintf(b, "  fix strategy: %s\n", rc.MinimalFixStrategy)
	if rc.ProposedSearchBlock != "" {
		fmt.Fprintf(b, "  proposed search block:\n%s\n", rc.ProposedSearchBlock)
	}
	b.WriteString("\n")
}

const analysisJSONInstruction = `Respond with a single JSON object of the form ` +
	`{"artifactPath": "...", "artifactLine": 0, "rootCauseSummary": "...", ` +
	`"causalExplanation": "...", "minimalFixStrategy": "...", ` +
	`"proposedSearchBlock": "...", "whyPreviousAttemptsFailed": "..."}. ` +
	"No tool calls are available in this phase."

// buildAnalysisPrompt assembles the REPAIR_ANALYZE prompt: raw failure
// output, the failing artifact's cached window only (never every cached
// file), and prior failed diagnoses.
func buildAnalysisPrompt(task string, ss *state.SharedState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)

	if ss.LastTestResults != nil {
		b.WriteString("Raw failure output:\n")
		b.WriteString(firstNLines(ss.LastTestResults.RawOutput, 40))
		b.WriteString("\n\n")
	}

	if ss.FailingArtifactPath != "" {
		fmt.Fprintf(&b, "Analyzer-identified artifact (context only, may be wrong): %s", ss.FailingArtifactPath)
		if ss.FailingArtifactLine > 0 {
			fmt.Fprintf(&b, ":%d", ss.FailingArtifactLine)
		}
		b.WriteString("\n")
		if entry, ok := ss.RecentFileReads[ss.FailingArtifactPath]; ok {
			b.WriteString(fileWindow(entry.Content, ss.FailingArtifactLine))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(ss.RepairHistory) > 0 {
		b.WriteString("Prior failed diagnoses:\n")
		for _, a := range ss.RepairHistory {
			b.WriteString(a.String())
			b.WriteByte('\n')
		}
		b.WriteString("\n")
	}

	b.WriteString(analysisJSONInstruction)
	return b.String()
}

func firstNLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
