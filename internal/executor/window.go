package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// windowRadius is how many lines on either side of a known failure line
// are kept when windowing a cached file for a prompt.
const windowRadius = 80

// firstNLinesUnknown is how many lines are kept from the start of a cached
// file when the failure line is unknown.
const firstNLinesUnknown = 120

var numberedLine = regexp.MustCompile(`^(\d+)\s*\|`)

// fileWindow extracts the portion of a cached file's numbered content
// relevant to a prompt: max(1, line-80) to line+80 when the failure line
// is known, or the first 120 lines otherwise. Elided ranges are summarized
// rather than silently dropped.
func fileWindow(content string, line int) string {
	lines := strings.Split(content, "\n")
	if line <= 0 {
		return joinWithElisionSummary(lines, 0, min(len(lines), firstNLinesUnknown), len(lines))
	}

	start := line - windowRadius
	if start < 1 {
		start = 1
	}
	end := line + windowRadius

	startIdx, endIdx := -1, -1
	for i, l := range lines {
		n, ok := parseLineNumber(l)
		if !ok {
			continue
		}
		if n >= start && startIdx == -1 {
			startIdx = i
		}
		if n <= end {
			endIdx = i + 1
		}
	}
	if startIdx == -1 {
		startIdx = 0
	}
	if endIdx == -1 || endIdx <= startIdx {
		endIdx = len(lines)
	}
	return joinWithElisionSummary(lines, startIdx, endIdx, len(lines))
}

func joinWithElisionSummary(lines []string, start, end, total int) string {
	var b strings.Builder
	if start > 0 {
		fmt.Fprintf(&b, "# <<< %d lines omitted >>>\n", start)
	}
	b.WriteString(strings.Join(lines[start:end], "\n"))
	if end < total {
		fmt.Fprintf(&b, "\n# <<< %d lines omitted >>>", total-end)
	}
	return b.String()
}

func parseLineNumber(line string) (int, bool) {
	m := numberedLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
