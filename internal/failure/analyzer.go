// Package failure extracts a single actionable location — a workspace file
// and line number — from the raw stdout/stderr a test runner produced, and
// classifies the kind of failure that location represents.
package failure

import (
	"regexp"
	"strings"

	"github.com/synapsenet/cir/internal/state"
)

// Subtype narrows a COLLECTION_ERROR or ASSERTION_ERROR into the specific
// shape the Executor's prompt construction cares about.
type Subtype string

const (
	SubtypeImportError  Subtype = "IMPORT_ERROR"
	SubtypeSyntaxError  Subtype = "SYNTAX_ERROR"
	SubtypeNoTestsFound Subtype = "NO_TESTS_FOUND"
	SubtypeUnknown      Subtype = "UNKNOWN"
)

// Location is the extracted failing artifact: a workspace-relative path
// and the line inside it, plus the subtype the surrounding text implies.
type Location struct {
	Path    string
	Line    int
	Subtype Subtype
	// Found reports whether extraction produced anything at all. A zero
	// Location with Found false means none of the priority-ordered
	// patterns matched.
	Found bool
}

// workspaceAnchors are the directory names FailureAnalyzer treats as the
// root of the project source tree when converting an absolute path found
// in a traceback into a workspace-relative one.
var workspaceAnchors = []string{"/src/", "/testing/", "/tests/"}

// pythonTracebackFrame matches a CPython traceback frame:
//
//	File "/abs/path/src/foo.py", line 42, in test_multiply
//
// The path group is greedy up to the closing quote so it captures the full
// absolute path even if it contains spaces.
var pythonTracebackFrame = regexp.MustCompile(`File "([^"]+)", line (\d+)`)

// anchoredShortFrame matches the compact form some runners emit directly on
// a line of output without the "File ..." wrapper:
//
//	src/foo.py:42: AssertionError
//	tests/test_foo.py:17:
var anchoredShortFrame = regexp.MustCompile(`(?m)^((?:src|tests|testing)/[^\s:]+):(\d+):`)

var collectingError = regexp.MustCompile(`ERROR collecting (\S+)`)
var failedTest = regexp.MustCompile(`FAILED (\S+?)::\S+`)
var noTestsRan = regexp.MustCompile(`(?i)(no tests ran|no tests collected|ERROR: not found)`)

var importErrorText = regexp.MustCompile(`(?i)(ImportError|ModuleNotFoundError)`)
var syntaxErrorText = regexp.MustCompile(`(?i)SyntaxError`)

// isTestPath reports whether a workspace-relative path looks like a test
// file rather than a source file, used to prefer source frames over test
// frames when a traceback has both.
func isTestPath(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") ||
		strings.Contains(path, "/tests/") || strings.Contains(path, "/testing/")
}

// toWorkspaceRelative converts an absolute path to a workspace-relative one
// by cutting at the last occurrence of one of workspaceAnchors. Paths with
// no matching anchor are treated as out-of-project and discarded by the
// caller.
func toWorkspaceRelative(absPath string) (string, bool) {
	best := -1
	for _, anchor := range workspaceAnchors {
		if idx := strings.LastIndex(absPath, anchor); idx > best {
			best = idx
		}
	}
	if best < 0 {
		return "", false
	}
	return strings.TrimPrefix(absPath[best:], "/"), true
}

// singleLineSanityCheck rejects anything that looks like it was extracted
// from the wrong span of text: a path must not itself contain a newline,
// a shell-prompt character, or internal spaces.
func singleLineSanityCheck(path string) bool {
	if strings.ContainsAny(path, "\n\r>") {
		return false
	}
	if strings.Contains(path, " ") {
		return false
	}
	return true
}

// Analyze runs the priority-ordered extraction over merged stdout+stderr
// output and returns the deepest workspace stack frame it can find, or the
// next-best signal (a collection error, a failed-test line, or a
// no-tests-found marker) when no stack frame is present.
func Analyze(combinedOutput string) Location {
	if loc, ok := deepestWorkspaceFrame(combinedOutput); ok {
		loc.Subtype = classify(combinedOutput, loc.Subtype)
		return loc
	}

	if m := collectingError.FindStringSubmatch(combinedOutput); m != nil {
		return Location{Path: m[1], Subtype: classify(combinedOutput, SubtypeUnknown), Found: true}
	}

	if m := failedTest.FindStringSubmatch(combinedOutput); m != nil {
		return Location{Path: m[1], Subtype: classify(combinedOutput, SubtypeUnknown), Found: true}
	}

	if noTestsRan.MatchString(combinedOutput) {
		return Location{Subtype: SubtypeNoTestsFound, Found: true}
	}

	return Location{}
}

// deepestWorkspaceFrame scans both traceback formats and returns the last
// matching frame, preferring source frames over test frames when both
// appear, and discarding any frame whose path has no workspace anchor.
func deepestWorkspaceFrame(output string) (Location, bool) {
	type candidate struct {
		path   string
		line   int
		isTest bool
	}
	var candidates []candidate

	for _, m := range pythonTracebackFrame.FindAllStringSubmatch(output, -1) {
		rel, ok := toWorkspaceRelative(m[1])
		if !ok || !singleLineSanityCheck(rel) {
			continue
		}
		candidates = append(candidates, candidate{path: rel, line: atoiSafe(m[2]), isTest: isTestPath(rel)})
	}
	for _, m := range anchoredShortFrame.FindAllStringSubmatch(output, -1) {
		if !singleLineSanityCheck(m[1]) {
			continue
		}
		candidates = append(candidates, candidate{path: m[1], line: atoiSafe(m[2]), isTest: isTestPath(m[1])})
	}

	if len(candidates) == 0 {
		return Location{}, false
	}

	// Prefer the last source-frame candidate; fall back to the last frame
	// overall (typically a test frame) if no source frame appeared.
	var lastSource, lastAny *candidate
	for i := range candidates {
		c := &candidates[i]
		lastAny = c
		if !c.isTest {
			lastSource = c
		}
	}
	chosen := lastAny
	if lastSource != nil {
		chosen = lastSource
	}
	return Location{Path: chosen.path, Line: chosen.line, Found: true}, true
}

func classify(output string, fallback Subtype) Subtype {
	switch {
	case importErrorText.MatchString(output):
		return SubtypeImportError
	case syntaxErrorText.MatchString(output):
		return SubtypeSyntaxError
	case noTestsRan.MatchString(output):
		return SubtypeNoTestsFound
	default:
		return fallback
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// ToFailureType maps a Subtype onto the state.FailureType space the rest
// of the system reasons about.
func ToFailureType(s Subtype) state.FailureType {
	switch s {
	case SubtypeImportError:
		return state.FailureImportError
	case SubtypeSyntaxError:
		return state.FailureSyntaxError
	default:
		return state.FailureUnknown
	}
}
