package patchlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_IdenticalContentIsEmpty(t *testing.T) {
	out, err := Render("src/a.py", "same\n", "same\n")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRender_SingleLineChange(t *testing.T) {
	before := "def multiply(a, b):\n    return a + b\n"
	after := "def multiply(a, b):\n    return a * b\n"

	out, err := Render("src/calc.py", before, after)
	require.NoError(t, err)
	assert.Contains(t, out, "a/src/calc.py")
	assert.Contains(t, out, "b/src/calc.py")
	assert.Contains(t, out, "-    return a + b")
	assert.Contains(t, out, "+    return a * b")
	assert.Contains(t, out, "@@")
}

func TestRender_AddedLines(t *testing.T) {
	before := "x = 1\n"
	after := "x = 1\ny = 2\n"

	out, err := Render("src/vars.py", before, after)
	require.NoError(t, err)
	assert.Contains(t, out, "+y = 2")
}

func TestRender_RemovedLines(t *testing.T) {
	before := "x = 1\ny = 2\n"
	after := "x = 1\n"

	out, err := Render("src/vars.py", before, after)
	require.NoError(t, err)
	assert.Contains(t, out, "-y = 2")
}

func TestRender_EmptyToNonEmpty(t *testing.T) {
	out, err := Render("src/new.py", "", "print('new')\n")
	require.NoError(t, err)
	assert.Contains(t, out, "+print('new')")
}
