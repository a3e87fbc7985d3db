package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/failure"
	"github.com/synapsenet/cir/internal/state"
)

// DefaultTestTimeout is the fixed timeout a test-suite run is allowed
// before it is forcibly terminated, per spec.md §9.
const DefaultTestTimeout = 60 * time.Second

// timeoutExitCode is the synthetic exit code run_tests reports when the
// interpreter process is killed for running past its timeout. It does not
// correspond to anything the interpreter itself could produce, and is
// classified the same as any other non-{0,1,2,4,5} code: ASSERTION_ERROR,
// conservatively, rather than COLLECTION_ERROR.
const timeoutExitCode = -1

// timeoutMarker is appended to RawOutput when the process is killed for
// timing out, so the FailureAnalyzer and any downstream prompt can see why
// there is no ordinary traceback to extract.
const timeoutMarker = "\n<<< TIMEOUT: test runner exceeded its time budget >>>\n"

var passingTestLine = regexp.MustCompile(`(?m)^(?:PASSED|ok)\s+(\S+)`)

// RunTestsTool invokes the configured test interpreter against the
// workspace root and turns its outcome into state.TestResults, recording
// the result and, on failure, the extracted failing artifact onto
// SharedState.
type RunTestsTool struct {
	WS          *diff.Workspace
	SS          *state.SharedState
	Interpreter []string
	Timeout     time.Duration
}

func (t *RunTestsTool) Definition() Definition {
	return Definition{Name: "run_tests", Description: "Run the configured test suite against the workspace.", Category: CategoryTest, Priority: 5}
}

func (t *RunTestsTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	if len(t.Interpreter) == 0 {
		return "", fmt.Errorf("run_tests: no interpreter configured")
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.Interpreter[0], t.Interpreter[1:]...)
	cmd.Dir = t.WS.Root()
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()

	exitCode := 0
	timedOut := runCtx.Err() == context.DeadlineExceeded
	output := combined.String()

	switch {
	case timedOut:
		exitCode = timeoutExitCode
		output += timeoutMarker
	case runErr != nil:
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = timeoutExitCode
		}
	}

	failureType := state.FailureTypeFromExitCode(exitCode)
	results := state.TestResults{
		WasRun:      true,
		ExitCode:    exitCode,
		RawOutput:   output,
		FailureType: failureType,
	}
	if failureType == state.FailureNone {
		results.Passing = extractPassingNames(output)
	} else {
		loc := failure.Analyze(output)
		results.ErrorSnippet = errorSnippet(output)
		t.SS.FailingArtifactPath = loc.Path
		t.SS.FailingArtifactLine = loc.Line
		if failureType == state.FailureCollectionError {
			t.SS.CollectionFailureSubtype = failure.ToFailureType(loc.Subtype)
			t.SS.CollectionFailureReason = errorSnippet(output)
		}
	}
	t.SS.SetLastTestResults(results)

	return fmt.Sprintf("exit code %d\n%s", exitCode, output), nil
}

func extractPassingNames(output string) []string {
	matches := passingTestLine.FindAllStringSubmatch(output, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// errorSnippet returns a short, single-line-safe excerpt of the raw
// output suitable for storing as CollectionFailureReason or
// TestResults.ErrorSnippet: the first non-blank line, trimmed.
func errorSnippet(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
