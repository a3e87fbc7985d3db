package orchestrator

// Result is what RunTask returns to every caller — the HTTP layer, the
// CLI, and tests. It never carries a Go error; spec.md §7 requires the
// API surface to always hand back a structured result instead of
// propagating a panic or bare error to the client.
type Result struct {
	Success         bool
	TotalIterations int
	Status          string
	Details         string
}
