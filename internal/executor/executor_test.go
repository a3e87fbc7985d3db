package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsenet/cir/internal/llm"
	"github.com/synapsenet/cir/internal/state"
	"github.com/synapsenet/cir/internal/tools"
)

type stubClient struct {
	responses []string
	calls     int
	err       error
}

func (s *stubClient) Generate(_ context.Context, _ llm.Role, _ string, _ float64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

type recordingTool struct {
	name    string
	calls   [][]map[string]any
	output  string
	failure error
}

func (t *recordingTool) Definition() tools.Definition {
	return tools.Definition{Name: t.name, Description: "test tool", Category: tools.CategoryRead}
}

func (t *recordingTool) Execute(_ context.Context, args map[string]any) (string, error) {
	t.calls = append(t.calls, []map[string]any{args})
	if t.failure != nil {
		return "", t.failure
	}
	return t.output, nil
}

func newRegistry(names ...string) (*tools.Registry, map[string]*recordingTool) {
	r := tools.NewRegistry()
	byName := make(map[string]*recordingTool)
	for _, n := range names {
		rt := &recordingTool{name: n, output: "ok"}
		byName[n] = rt
		r.Register(rt)
	}
	return r, byName
}

func TestExecute_CommonPath_RunsProposedTools(t *testing.T) {
	registry, byName := newRegistry("list_files", "read_file", "run_tests", "grep", "file_tree")
	client := &stubClient{responses: []string{
		`{"reasoning": "look around", "tool_calls": [{"tool": "list_files", "args": {"path": "."}}]}`,
	}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseReproduce
	ss.StructureDiscovered = true

	result := e.Execute(context.Background(), "discover and run tests", ss)
	require.Len(t, result.ToolOutcomes, 1)
	assert.Equal(t, "list_files", result.ToolOutcomes[0].Tool)
	assert.Len(t, byName["list_files"].calls, 1)
	assert.Equal(t, 1, ss.ToolCallCount)
}

func TestExecute_CommonPath_DiscoveryGatePrependsListFiles(t *testing.T) {
	registry, byName := newRegistry("list_files", "read_file", "run_tests", "grep", "file_tree")
	client := &stubClient{responses: []string{
		`{"reasoning": "read", "tool_calls": [{"tool": "read_file", "args": {"path": "a.py"}}]}`,
	}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseReproduce
	ss.StructureDiscovered = false

	result := e.Execute(context.Background(), "discover", ss)
	require.Len(t, result.ToolOutcomes, 2)
	assert.Equal(t, "list_files", result.ToolOutcomes[0].Tool)
	assert.Len(t, byName["list_files"].calls, 1)
}

func TestExecute_CommonPath_PhaseFilterDropsDisallowedTool(t *testing.T) {
	registry, byName := newRegistry("run_tests", "write_file")
	client := &stubClient{responses: []string{
		`{"reasoning": "x", "tool_calls": [{"tool": "write_file", "args": {}}]}`,
	}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseValidate

	result := e.Execute(context.Background(), "run tests", ss)
	assert.Empty(t, result.ToolOutcomes)
	assert.Empty(t, byName["write_file"].calls)
}

func TestExecute_CommonPath_ReprompsOnceOnParseFailure(t *testing.T) {
	registry, _ := newRegistry("run_tests")
	client := &stubClient{responses: []string{
		"not json at all",
		`{"reasoning": "retry", "tool_calls": [{"tool": "run_tests", "args": {}}]}`,
	}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseValidate

	result := e.Execute(context.Background(), "run tests", ss)
	require.Len(t, result.ToolOutcomes, 1)
	assert.Equal(t, 2, client.calls)
}

func TestExecute_CommonPath_ZeroToolCallsAfterSecondParseFailure(t *testing.T) {
	registry, _ := newRegistry("run_tests")
	client := &stubClient{responses: []string{"still not json", "still not json either"}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseValidate

	result := e.Execute(context.Background(), "run tests", ss)
	assert.Empty(t, result.ToolOutcomes)
}

func TestExecute_CommonPath_RecordsToolFailure(t *testing.T) {
	registry, byName := newRegistry("run_tests")
	byName["run_tests"].failure = errors.New("boom")
	client := &stubClient{responses: []string{
		`{"tool_calls": [{"tool": "run_tests", "args": {}}]}`,
	}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseValidate

	result := e.Execute(context.Background(), "run tests", ss)
	require.Len(t, result.ToolOutcomes, 1)
	assert.True(t, result.ToolOutcomes[0].Failed())
	assert.True(t, result.HasErrors())
	assert.Equal(t, "boom", result.FirstError())
}

func TestExecute_AnalyzePath_StoresValidAnalysis(t *testing.T) {
	registry, _ := newRegistry()
	client := &stubClient{responses: []string{
		`{"artifactPath": "src/a.py", "artifactLine": 10, "rootCauseSummary": "s",
		"causalExplanation": "c", "minimalFixStrategy": "f"}`,
	}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseRepairAnalyze

	result := e.Execute(context.Background(), "diagnose", ss)
	require.NotNil(t, result.RootCauseAnalysis)
	assert.True(t, result.RootCauseAnalysis.Valid)
	assert.Same(t, ss.LastRootCauseAnalysis, result.RootCauseAnalysis)
}

func TestExecute_AnalyzePath_StoresInvalidAnalysisWithReason(t *testing.T) {
	registry, _ := newRegistry()
	client := &stubClient{responses: []string{`{"artifactPath": "src/a.py"}`}}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseRepairAnalyze

	result := e.Execute(context.Background(), "diagnose", ss)
	require.NotNil(t, result.RootCauseAnalysis)
	assert.False(t, result.RootCauseAnalysis.Valid)
	assert.NotEmpty(t, result.RootCauseAnalysis.InvalidReason)
}

func TestExecute_AnalyzePath_LLMErrorYieldsNoAnalysis(t *testing.T) {
	registry, _ := newRegistry()
	client := &stubClient{err: errors.New("down")}
	e := New(client, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseRepairAnalyze

	result := e.Execute(context.Background(), "diagnose", ss)
	assert.Nil(t, result.RootCauseAnalysis)
	assert.Nil(t, ss.LastRootCauseAnalysis)
}

func TestExecute_NilClientProducesNoToolCalls(t *testing.T) {
	registry, _ := newRegistry("run_tests")
	e := New(nil, registry)
	ss := state.NewSharedState(state.Goal("fix it"))
	ss.CurrentPhase = state.PhaseValidate

	result := e.Execute(context.Background(), "run tests", ss)
	assert.Empty(t, result.ToolOutcomes)
}
