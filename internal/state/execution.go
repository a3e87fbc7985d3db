package state

// ToolOutcome is the record of a single tool invocation the Executor made
// while carrying out one task: the tool name, its arguments as the LLM
// supplied them, whatever output it produced, and an error string if the
// tool failed.
type ToolOutcome struct {
	Tool   string
	Args   map[string]any
	Output string
	Err    string
}

// Failed reports whether this tool call ended in an error.
func (t ToolOutcome) Failed() bool { return t.Err != "" }

// ExecutionResult is what the Executor hands back to the Critic and
// Mediator after carrying out one planned task: every tool it ran, the
// most recent TestResults (nil if no run_tests call happened during this
// task), and the set of files it modified during the task.
type ExecutionResult struct {
	TaskDescription string
	ToolOutcomes    []ToolOutcome
	LastTestResults *TestResults
	ModifiedFiles   []string

	// RootCauseAnalysis is set only by the REPAIR_ANALYZE tool-less path;
	// nil for every other phase.
	RootCauseAnalysis *RootCauseAnalysis
}

// HasErrors reports whether any tool call in this task failed.
func (e ExecutionResult) HasErrors() bool {
	for _, o := range e.ToolOutcomes {
		if o.Failed() {
			return true
		}
	}
	return false
}

// FirstError returns the error string of the first failed tool call, or ""
// if none failed.
func (e ExecutionResult) FirstError() string {
	for _, o := range e.ToolOutcomes {
		if o.Failed() {
			return o.Err
		}
	}
	return ""
}

// ToolCallCount returns how many tool calls this task made, used by the
// Orchestrator to accumulate the run-wide benchmark counter.
func (e ExecutionResult) ToolCallCount() int {
	return len(e.ToolOutcomes)
}
