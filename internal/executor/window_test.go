package executor

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numberedContent(n int) string {
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = strconv.Itoa(i+1) + " | line content"
	}
	return strings.Join(lines, "\n")
}

func TestFileWindow_UnknownLineTakesFirst120(t *testing.T) {
	content := numberedContent(300)
	out := fileWindow(content, 0)
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "1 |")
	assert.Contains(t, out, "180 lines omitted")
}

func TestFileWindow_KnownLineCentersWindow(t *testing.T) {
	content := numberedContent(300)
	out := fileWindow(content, 150)
	assert.Contains(t, out, "70 |")
	assert.Contains(t, out, "230 |")
	assert.NotContains(t, out, "\n1 |")
}

func TestFileWindow_LineNearStartClampsToOne(t *testing.T) {
	content := numberedContent(300)
	out := fileWindow(content, 5)
	assert.Contains(t, out, "1 |")
	assert.NotContains(t, out, "lines omitted >>>\n1")
}

func TestFileWindow_NoTruncationWhenWindowCoversWholeFile(t *testing.T) {
	content := numberedContent(50)
	out := fileWindow(content, 25)
	assert.NotContains(t, out, "omitted")
}
