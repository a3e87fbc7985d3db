package state

// FailureType classifies why a test run did not come back clean. It drives
// both the Mediator's REPRODUCE/VALIDATE dispatch and the Executor's prompt
// construction (a COLLECTION_ERROR gets the raw collector output, an
// ASSERTION_ERROR gets the failing test's traceback).
type FailureType string

const (
	FailureNone            FailureType = "NONE"
	FailureAssertionError  FailureType = "ASSERTION_ERROR"
	FailureSyntaxError     FailureType = "SYNTAX_ERROR"
	FailureImportError     FailureType = "IMPORT_ERROR"
	FailureAttributeError  FailureType = "ATTRIBUTE_ERROR"
	FailureTypeError       FailureType = "TYPE_ERROR"
	FailureIndexError      FailureType = "INDEX_ERROR"
	FailureKeyError        FailureType = "KEY_ERROR"
	FailureCollectionError FailureType = "COLLECTION_ERROR"
	FailureUnknown         FailureType = "UNKNOWN"
)

// FailureTypeFromExitCode maps a test runner's process exit code to a
// FailureType per spec.md §4.3: 0 is a clean pass, 1 is an ordinary
// assertion failure, 2/4/5 mean the runner could not even collect the
// suite (missing import, syntax error, bad test path), anything else is
// treated conservatively as an assertion failure rather than a collection
// failure.
func FailureTypeFromExitCode(exitCode int) FailureType {
	switch exitCode {
	case 0:
		return FailureNone
	case 1:
		return FailureAssertionError
	case 2, 4, 5:
		return FailureCollectionError
	default:
		return FailureAssertionError
	}
}

// TestResults is the immutable outcome of one run_tests invocation.
type TestResults struct {
	WasRun       bool
	ExitCode     int
	Passing      []string
	Failing      []string
	RawOutput    string
	ErrorSnippet string
	FailureType  FailureType
}

// AllPassed reports whether the run happened and came back clean: no
// failing tests and at least the run actually executed. A suite with zero
// collected tests is not "all passed" — that case is surfaced via
// FailureCollectionError by the caller that builds TestResults, not here.
func (t TestResults) AllPassed() bool {
	return t.WasRun && t.FailureType == FailureNone && len(t.Failing) == 0
}

// HasFailures reports whether the run executed and produced at least one
// failing test or a collection-level failure.
func (t TestResults) HasFailures() bool {
	if !t.WasRun {
		return false
	}
	return t.FailureType != FailureNone || len(t.Failing) > 0
}
