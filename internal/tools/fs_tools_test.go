package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/state"
)

func newFixture(t *testing.T) (*diff.Workspace, *state.SharedState) {
	t.Helper()
	ws, err := diff.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	ss := state.NewSharedState(state.Goal("fix the bug"))
	return ws, ss
}

func TestReadFileTool(t *testing.T) {
	ws, ss := newFixture(t)
	require.NoError(t, ws.WriteFile("src/a.py", "print(1)\n"))

	tool := &ReadFileTool{WS: ws, SS: ss}
	out, err := tool.Execute(context.Background(), map[string]any{"path": "src/a.py"})
	require.NoError(t, err)
	assert.Contains(t, out, "print(1)")
	_, cached := ss.RecentFileReads["src/a.py"]
	assert.True(t, cached)
}

func TestReadFileTool_MissingPath(t *testing.T) {
	ws, ss := newFixture(t)
	tool := &ReadFileTool{WS: ws, SS: ss}
	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestWriteFileTool(t *testing.T) {
	ws, ss := newFixture(t)
	tool := &WriteFileTool{WS: ws, SS: ss}

	_, err := tool.Execute(context.Background(), map[string]any{"path": "out/new.py", "content": "x = 1\n"})
	require.NoError(t, err)

	content, err := ws.ReadFile("out/new.py")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", content)
	assert.Equal(t, []string{"out/new.py"}, ss.ModifiedFiles)
}

func TestReplaceInFileTool(t *testing.T) {
	ws, ss := newFixture(t)
	require.NoError(t, ws.WriteFile("a.py", "def f():\n    return 1\n"))

	tool := &ReplaceInFileTool{WS: ws, SS: ss}
	_, err := tool.Execute(context.Background(), map[string]any{
		"path":    "a.py",
		"search":  "return 1",
		"replace": "return 2",
	})
	require.NoError(t, err)

	content, err := ws.ReadFile("a.py")
	require.NoError(t, err)
	assert.Contains(t, content, "return 2")
	assert.Equal(t, []string{"a.py"}, ss.ModifiedFiles)
}

func TestReplaceInFileTool_NotFound(t *testing.T) {
	ws, ss := newFixture(t)
	require.NoError(t, ws.WriteFile("a.py", "x = 1\n"))

	tool := &ReplaceInFileTool{WS: ws, SS: ss}
	_, err := tool.Execute(context.Background(), map[string]any{
		"path": "a.py", "search": "does not exist", "replace": "y",
	})
	assert.Error(t, err)
	assert.Empty(t, ss.ModifiedFiles)
}

func TestGrepTool(t *testing.T) {
	ws, _ := newFixture(t)
	require.NoError(t, ws.WriteFile("a.py", "def target():\n    pass\n"))

	tool := &GrepTool{WS: ws}
	out, err := tool.Execute(context.Background(), map[string]any{"pattern": "target"})
	require.NoError(t, err)
	assert.Contains(t, out, "a.py")
}

func TestGrepTool_MissingPattern(t *testing.T) {
	ws, _ := newFixture(t)
	tool := &GrepTool{WS: ws}
	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestListFilesTool_SetsStructureDiscovered(t *testing.T) {
	ws, ss := newFixture(t)
	require.NoError(t, ws.WriteFile("a.py", "x = 1\n"))

	tool := &ListFilesTool{WS: ws, SS: ss}
	assert.False(t, ss.StructureDiscovered)
	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "a.py")
	assert.True(t, ss.StructureDiscovered)
}

func TestFileTreeTool_SetsStructureDiscovered(t *testing.T) {
	ws, ss := newFixture(t)
	require.NoError(t, ws.WriteFile("nested/a.py", "x = 1\n"))

	tool := &FileTreeTool{WS: ws, SS: ss}
	out, err := tool.Execute(context.Background(), map[string]any{"path": "."})
	require.NoError(t, err)
	assert.Contains(t, out, "nested/a.py")
	assert.True(t, ss.StructureDiscovered)
}
