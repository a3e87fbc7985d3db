package critic

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsenet/cir/internal/state"
)

func TestBuildPrompt_IncludesPhaseTaskAndTestOutcome(t *testing.T) {
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseValidate
	result := state.ExecutionResult{
		TaskDescription: "run the suite",
		LastTestResults: &state.TestResults{WasRun: true, ExitCode: 1, FailureType: state.FailureAssertionError},
		ModifiedFiles:   []string{"src/a.py"},
	}

	prompt := buildPrompt(result, ss)
	assert.Contains(t, prompt, "VALIDATE")
	assert.Contains(t, prompt, "run the suite")
	assert.Contains(t, prompt, "ASSERTION_ERROR")
	assert.Contains(t, prompt, "src/a.py")
}

func TestBuildPrompt_NoTestRun(t *testing.T) {
	ss := state.NewSharedState(state.Goal("fix it"))
	prompt := buildPrompt(state.ExecutionResult{TaskDescription: "diagnose"}, ss)
	assert.Contains(t, prompt, "did not run")
}

func TestBuildPrompt_IncludesErrorDetailWhenPresent(t *testing.T) {
	ss := state.NewSharedState(state.Goal("fix it"))
	result := state.ExecutionResult{
		TaskDescription: "patch",
		ToolOutcomes:    []state.ToolOutcome{{Tool: "replace_in_file", Err: "search block not found"}},
	}

	prompt := buildPrompt(result, ss)
	assert.Contains(t, prompt, "Error detail:")
	assert.Contains(t, prompt, "search block not found")
}

func TestBuildPrompt_CapsOverallLength(t *testing.T) {
	ss := state.NewSharedState(state.Goal("fix it"))
	lines := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		lines = append(lines, strings.Repeat("x", 100)+"-"+strconv.Itoa(i))
	}
	result := state.ExecutionResult{
		TaskDescription: "patch",
		ToolOutcomes:    []state.ToolOutcome{{Tool: "replace_in_file", Err: strings.Join(lines, "\n")}},
	}

	prompt := buildPrompt(result, ss)
	assert.LessOrEqual(t, len(prompt), maxPromptChars)
}

func TestTruncateErrorDetail_CapsLineCount(t *testing.T) {
	lines := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		lines = append(lines, "line "+strconv.Itoa(i))
	}
	detail := strings.Join(lines, "\n")

	out := truncateErrorDetail(detail)
	require.LessOrEqual(t, len(strings.Split(out, "\n")), maxErrorLines)
	assert.Contains(t, out, "line 0")
	assert.NotContains(t, out, "line 25")
}

func TestTruncateErrorDetail_CapsCharCountAtLineBoundary(t *testing.T) {
	lines := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		lines = append(lines, strings.Repeat("y", 1000))
	}
	detail := strings.Join(lines, "\n")

	out := truncateErrorDetail(detail)
	assert.LessOrEqual(t, len(out), maxErrorChars)
	for _, l := range strings.Split(out, "\n") {
		assert.Equal(t, strings.Repeat("y", 1000), l)
	}
}

func TestTruncateErrorDetail_ShortDetailUnchanged(t *testing.T) {
	out := truncateErrorDetail("just one short line")
	assert.Equal(t, "just one short line", out)
}
