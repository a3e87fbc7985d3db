package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsenet/cir/internal/critic"
	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/logging"
	"github.com/synapsenet/cir/internal/mediator"
	"github.com/synapsenet/cir/internal/metrics"
	"github.com/synapsenet/cir/internal/planner"
)

// calcFixtureClient drives one deterministic calc.py repair cycle: the
// Planner and Critic roles always fail (forcing fallback plans), and the
// Executor role's response is chosen by inspecting the prompt — the
// REPAIR_ANALYZE prompt is uniquely identified by its JSON schema
// instruction, while the common tool-path prompt is identified by which
// tools its "Available tools:" section lists.
type calcFixtureClient struct {
	artifactPath    string
	patchPath       string
	patchSearch     string
	patchReplace    string
	breakPatch      bool // when true, propose a search block absent from the file
}

func (c calcFixtureClient) Generate(_ context.Context, role llm.Role, prompt string, _ float64) (string, error) {
	if role != llm.RoleExecutor {
		return "", fmt.Errorf("fixture: role %s always falls back", role)
	}
	if strings.Contains(prompt, `"artifactPath"`) {
		return fmt.Sprintf(`{"artifactPath":%q,"artifactLine":0,"rootCauseSummary":"wrong operator","causalExplanation":"division used where multiplication was intended","minimalFixStrategy":"replace the division with multiplication","proposedSearchBlock":"","whyPreviousAttemptsFailed":""}`, c.artifactPath), nil
	}
	if strings.Contains(prompt, "replace_in_file:") {
		search := c.patchSearch
		if c.breakPatch {
			search = "this search block does not appear in the file"
		}
		return fmt.Sprintf(`{"reasoning":"apply the fix","tool_calls":[{"tool":"replace_in_file","args":{"path":%q,"search":%q,"replace":%q}}]}`, c.patchPath, search, c.patchReplace), nil
	}
	if strings.Contains(prompt, "run_tests:") {
		return `{"reasoning":"run the suite","tool_calls":[{"tool":"run_tests","args":{}}]}`, nil
	}
	return `{"reasoning":"nothing to do","tool_calls":[]}`, nil
}

// neverParsesClient always returns text with no tool_calls the Executor
// can extract and no JSON a Planner can parse, simulating a pathological
// LLM across every role.
type neverParsesClient struct{}

func (neverParsesClient) Generate(context.Context, llm.Role, string, float64) (string, error) {
	return "this is not JSON of any kind", nil
}

// fakeTestRunnerScript is a POSIX-shell stand-in for a real test
// interpreter: it passes exactly when calc.py has already been fixed,
// avoiding any dependency on a real language toolchain being installed.
const fakeTestRunnerScript = `grep -q 'return a \* b' calc.py && exit 0 || exit 1`

func buildScenarioOrchestrator(t *testing.T, client llm.Client) *Orchestrator {
	t.Helper()
	dir := t.TempDir()
	ws, err := diff.NewWorkspace(dir)
	require.NoError(t, err)
	_, m := metrics.NewRegistry()
	return &Orchestrator{
		Workspace:   ws,
		Planner:     planner.New(client),
		Critic:      critic.New(client),
		Client:      client,
		Interpreter: []string{"sh", "-c", fakeTestRunnerScript},
		SourceExt:   ".py",
		Logger:      logging.Default(),
		Metrics:     m,
	}
}

func writeCalc(t *testing.T, o *Orchestrator, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(o.Workspace.Root(), "calc.py"), []byte(body), 0o644))
}

func readCalc(t *testing.T, o *Orchestrator) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(o.Workspace.Root(), "calc.py"))
	require.NoError(t, err)
	return string(data)
}

// S1: a workspace where the tests already pass finishes in one iteration
// with a SUCCESS-without-repair result.
func TestScenario_TestsAlreadyPass(t *testing.T) {
	client := calcFixtureClient{}
	o := buildScenarioOrchestrator(t, client)
	writeCalc(t, o, "def multiply(a, b):\n    return a * b\n")

	result := o.RunTask(context.Background(), "nothing is broken")

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalIterations)
	assert.Equal(t, "No files modified", result.Details)
}

// S2: a buggy multiply() is diagnosed, patched via replace_in_file, and
// confirmed by VALIDATE.
func TestScenario_BuggyOperatorIsRepaired(t *testing.T) {
	client := calcFixtureClient{
		artifactPath: "calc.py",
		patchPath:    "calc.py",
		patchSearch:  "return a / b",
		patchReplace: "return a * b",
	}
	o := buildScenarioOrchestrator(t, client)
	writeCalc(t, o, "def multiply(a, b):\n    return a / b\n")

	result := o.RunTask(context.Background(), "fix the multiply operator")

	require.True(t, result.Success)
	assert.Equal(t, 4, result.TotalIterations)
	assert.Equal(t, "calc.py", result.Details)
	assert.Contains(t, readCalc(t, o), "return a * b")
}

// S3: the LLM proposes a search block absent from the file. The tool
// error reaches REPLAN through the attempts-based ladder (the test
// results carried over from REPRODUCE keep it off the immediate "not
// found" replan), the workspace is restored to its
// pre-patch snapshot every cycle, and the run never actually succeeds
// since the fixture never offers a valid patch — it exhausts the
// iteration cap without ever mutating the file on disk.
func TestScenario_SearchBlockNotFound_NeverMutatesFile(t *testing.T) {
	client := calcFixtureClient{
		artifactPath: "calc.py",
		patchPath:    "calc.py",
		patchSearch:  "return a / b",
		patchReplace: "return a * b",
		breakPatch:   true,
	}
	o := buildScenarioOrchestrator(t, client)
	original := "def multiply(a, b):\n    return a / b\n"
	writeCalc(t, o, original)

	result := o.RunTask(context.Background(), "fix the multiply operator")

	assert.False(t, result.Success)
	assert.Equal(t, mediator.MaxTotalIterations, result.TotalIterations)
	assert.Equal(t, original, readCalc(t, o), "every REPLAN must restore the original file")
}

// S6: a pathological LLM that never produces parseable output for any
// role terminates FAIL within the iteration cap and never touches
// unrelated files.
func TestScenario_PathologicalLLM_NeverMutatesUnrelatedFiles(t *testing.T) {
	o := buildScenarioOrchestrator(t, neverParsesClient{})
	writeCalc(t, o, "def multiply(a, b):\n    return a / b\n")
	require.NoError(t, os.WriteFile(filepath.Join(o.Workspace.Root(), "unrelated.py"), []byte("x = 1\n"), 0o644))

	result := o.RunTask(context.Background(), "fix the multiply operator")

	assert.False(t, result.Success)
	assert.Equal(t, mediator.MaxTotalIterations, result.TotalIterations)
	assert.Contains(t, result.Status, "Maximum iterations exceeded")

	data, err := os.ReadFile(filepath.Join(o.Workspace.Root(), "unrelated.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data))
}
