package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceOnce_ExactMatch(t *testing.T) {
	content := "def multiply(a, b):\n    result = 0\n    for _ in range(b):\n        result += a\n    return result\n"
	search := "    for _ in range(b):\n        result += a"
	replace := "    return a * b"

	out, err := replaceOnce(content, search, replace, "calc.py")
	require.NoError(t, err)
	assert.Contains(t, out, "return a * b")
	assert.NotContains(t, out, "result += a")
}

func TestReplaceOnce_AmbiguousExactMatch(t *testing.T) {
	content := "x = 1\nx = 1\n"
	_, err := replaceOnce(content, "x = 1", "x = 2", "dup.py")
	var ambiguous *ErrSearchBlockAmbiguous
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 2, ambiguous.Count)
}

func TestReplaceOnce_FuzzyWhitespaceMatch(t *testing.T) {
	content := "def f():\n\tresult  =   0\n\treturn result\n"
	search := "result = 0"
	replace := "result = 1"

	out, err := replaceOnce(content, search, replace, "f.py")
	require.NoError(t, err)
	assert.Contains(t, out, "result = 1")
}

func TestReplaceOnce_NotFound(t *testing.T) {
	content := "a = 1\nb = 2\n"
	_, err := replaceOnce(content, "c = 3", "c = 4", "missing.py")
	var notFound *ErrSearchBlockNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestReplaceOnce_FuzzyAmbiguous(t *testing.T) {
	content := "if x:\n    pass\nif x:\n    pass\n"
	_, err := replaceOnce(content, "if  x:\n   pass", "if x:\n    return", "dup2.py")
	var ambiguous *ErrSearchBlockAmbiguous
	require.ErrorAs(t, err, &ambiguous)
}

func TestWorkspace_ReplaceInFile(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.WriteFile("calc.py", "def add(a, b):\n    return a - b\n"))

	require.NoError(t, ws.ReplaceInFile("calc.py", "return a - b", "return a + b"))

	content, err := ws.ReadFile("calc.py")
	require.NoError(t, err)
	assert.Contains(t, content, "return a + b")
}
