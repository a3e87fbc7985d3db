package critic

import (
	"fmt"
	"strings"

	"github.com/synapsenet/cir/internal/state"
)

// maxPromptChars is the hard ceiling on the assembled critique prompt.
const maxPromptChars = 14000

// maxErrorLines and maxErrorChars bound how much of a tool error's detail
// is folded into the prompt; truncation lands on a line boundary, except
// that a first line longer than maxErrorChars is itself cut mid-line.
const (
	maxErrorLines = 20
	maxErrorChars = 2500
)

// buildPrompt assembles the critique prompt: the task, whether tests ran
// and their pass/fail state, and truncated detail from the first tool
// error if one occurred. The whole prompt is then capped at
// maxPromptChars, truncating from the end.
func buildPrompt(result state.ExecutionResult, ss *state.SharedState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\nTask: %s\n\n", ss.CurrentPhase, result.TaskDescription)

	if tr := result.LastTestResults; tr != nil {
		fmt.Fprintf(&b, "Tests ran: %v, exit code %d, failure type %s\n", tr.WasRun, tr.ExitCode, tr.FailureType)
	} else {
		b.WriteString("Tests did not run during this step.\n")
	}

	if len(result.ModifiedFiles) > 0 {
		fmt.Fprintf(&b, "Modified files: %s\n", strings.Join(result.ModifiedFiles, ", "))
	}

	if result.HasErrors() {
		b.WriteString("\nError detail:\n")
		b.WriteString(truncateErrorDetail(result.FirstError()))
	}

	prompt := b.String()
	if len(prompt) > maxPromptChars {
		prompt = prompt[:maxPromptChars]
	}
	return prompt
}

// truncateErrorDetail caps error text at maxErrorLines lines and
// maxErrorChars characters, whichever is reached first, cutting on a line
// boundary. When even the first line is longer than maxErrorChars, that
// line is cut at maxErrorChars.
func truncateErrorDetail(detail string) string {
	lines := strings.Split(detail, "\n")
	if len(lines) > maxErrorLines {
		lines = lines[:maxErrorLines]
	}

	joined := strings.Join(lines, "\n")
	for len(joined) > maxErrorChars {
		idx := strings.LastIndexByte(joined, '\n')
		if idx < 0 {
			return joined[:maxErrorChars]
		}
		joined = joined[:idx]
	}
	return joined
}
