package critic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/state"
)

type stubClient struct {
	response string
	err      error
	calls    int
	lastRole llm.Role
}

func (s *stubClient) Generate(_ context.Context, role llm.Role, _ string, _ float64) (string, error) {
	s.calls++
	s.lastRole = role
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func cleanResult() state.ExecutionResult {
	return state.ExecutionResult{
		TaskDescription: "run the suite",
		LastTestResults: &state.TestResults{WasRun: true, FailureType: state.FailureNone},
	}
}

func erroredResult() state.ExecutionResult {
	return state.ExecutionResult{
		TaskDescription: "patch the file",
		ToolOutcomes:    []state.ToolOutcome{{Tool: "replace_in_file", Err: "search block not found"}},
	}
}

func failedTestsResult() state.ExecutionResult {
	return state.ExecutionResult{
		TaskDescription: "run the suite",
		LastTestResults: &state.TestResults{WasRun: true, FailureType: state.FailureAssertionError, Failing: []string{"test_x"}},
	}
}

func TestAnalyze_LowRisk_CleanPass(t *testing.T) {
	client := &stubClient{response: "looks fine"}
	c := New(client)
	ss := state.NewSharedState(state.Goal("fix it"))

	fb := c.Analyze(context.Background(), cleanResult(), ss)
	assert.Equal(t, RiskLow, fb.RiskLevel)
	assert.Equal(t, 1.0, fb.Satisfaction)
	assert.Equal(t, "looks fine", fb.Critique)
	assert.Equal(t, llm.RoleCritic, client.lastRole)
}

func TestAnalyze_MediumRisk_ToolErrorOnly(t *testing.T) {
	c := New(&stubClient{response: "ok"})
	ss := state.NewSharedState(state.Goal("fix it"))

	fb := c.Analyze(context.Background(), erroredResult(), ss)
	assert.Equal(t, RiskMedium, fb.RiskLevel)
	assert.Equal(t, 0.5, fb.Satisfaction)
}

func TestAnalyze_MediumRisk_TestFailureOnly(t *testing.T) {
	c := New(&stubClient{response: "ok"})
	ss := state.NewSharedState(state.Goal("fix it"))

	fb := c.Analyze(context.Background(), failedTestsResult(), ss)
	assert.Equal(t, RiskMedium, fb.RiskLevel)
	assert.Equal(t, 0.5, fb.Satisfaction)
}

func TestAnalyze_HighRisk_BothToolErrorAndTestFailure(t *testing.T) {
	c := New(&stubClient{response: "ok"})
	ss := state.NewSharedState(state.Goal("fix it"))

	result := failedTestsResult()
	result.ToolOutcomes = []state.ToolOutcome{{Tool: "run_tests", Err: "timed out"}}

	fb := c.Analyze(context.Background(), result, ss)
	assert.Equal(t, RiskHigh, fb.RiskLevel)
	assert.Equal(t, 0.2, fb.Satisfaction)
}

func TestAnalyze_HeuristicsIndependentOfLLMFailure(t *testing.T) {
	c := New(&stubClient{err: errors.New("upstream down")})
	ss := state.NewSharedState(state.Goal("fix it"))

	fb := c.Analyze(context.Background(), erroredResult(), ss)
	assert.Equal(t, RiskMedium, fb.RiskLevel)
	assert.Equal(t, 0.5, fb.Satisfaction)
	assert.Empty(t, fb.Critique)
}

func TestAnalyze_NilClientSkipsLLMEntirely(t *testing.T) {
	c := New(nil)
	ss := state.NewSharedState(state.Goal("fix it"))

	fb := c.Analyze(context.Background(), cleanResult(), ss)
	assert.Equal(t, RiskLow, fb.RiskLevel)
	assert.Empty(t, fb.Critique)
}

func TestHasErrors_AndTestsFailed(t *testing.T) {
	require.True(t, hasErrors(erroredResult()))
	require.False(t, hasErrors(cleanResult()))
	require.True(t, testsFailed(failedTestsResult()))
	require.False(t, testsFailed(cleanResult()))
	require.False(t, testsFailed(state.ExecutionResult{}))
}
