package tools

import (
	"strings"

	"github.com/synapsenet/cir/internal/state"
)

// PhaseAllowlist returns the set of tool names permitted in a given
// RepairPhase. REPAIR_ANALYZE permits none — that phase produces a
// RootCauseAnalysis directly, with no tool calls at all.
func PhaseAllowlist(phase state.RepairPhase) map[string]bool {
	switch phase {
	case state.PhaseReproduce:
		return set("read_file", "run_tests", "grep", "list_files", "file_tree")
	case state.PhaseRepairAnalyze:
		return map[string]bool{}
	case state.PhaseRepairPatch:
		return set("read_file", "replace_in_file", "write_file", "grep", "list_files", "file_tree")
	case state.PhaseValidate:
		return set("run_tests")
	default:
		return map[string]bool{}
	}
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ToolCallPlan is one proposed call the LLM asked for, prior to any gate
// rewriting it.
type ToolCallPlan struct {
	Tool string
	Args map[string]any
}

// ApplyDiscoveryGate enforces the REPRODUCE-only rule that the workspace
// structure must be discovered before anything else happens: if the
// structure has not yet been discovered and the proposed calls don't
// already include a discovery tool, a `list_files .` call is prepended.
func ApplyDiscoveryGate(phase state.RepairPhase, structureDiscovered bool, calls []ToolCallPlan) []ToolCallPlan {
	if phase != state.PhaseReproduce || structureDiscovered {
		return calls
	}
	for _, c := range calls {
		if c.Tool == "list_files" || c.Tool == "file_tree" {
			return calls
		}
	}
	return append([]ToolCallPlan{{Tool: "list_files", Args: map[string]any{"path": "."}}}, calls...)
}

// ApplyRepairEvidenceGate enforces the REPAIR_PATCH-only rule that a
// patch must not be attempted blind: when the last failure was an
// assertion or collection error and the failing artifact is known but
// not yet cached, the proposed call list is replaced wholesale with a
// single read_file of that artifact so the Executor gathers evidence
// before (on the next task) proposing an edit.
func ApplyRepairEvidenceGate(phase state.RepairPhase, ss *state.SharedState, calls []ToolCallPlan) []ToolCallPlan {
	if phase != state.PhaseRepairPatch {
		return calls
	}
	failureKnown := ss.LastTestResults != nil && ss.LastTestResults.HasFailures()
	if !failureKnown || ss.FailingArtifactPath == "" {
		return calls
	}
	if _, cached := ss.RecentFileReads[ss.FailingArtifactPath]; cached {
		return calls
	}

	path := sanitizeArtifactPath(ss.FailingArtifactPath)
	if path == "" {
		return []ToolCallPlan{{Tool: "list_files", Args: map[string]any{"path": "."}}}
	}
	return []ToolCallPlan{{Tool: "read_file", Args: map[string]any{"path": path}}}
}

// sanitizeArtifactPath strips the traversal-enabling prefixes a tracked
// failing-artifact path might carry before it is ever handed to a tool,
// and rejects outright a path contaminated by multi-line, shell-prompt
// marker, or internal-whitespace text — spec.md §4.3's repair-evidence
// gate must never hand a read_file call a path that is not actually a
// path. FailureAnalyzer applies the same check to the traceback-frame
// extraction path, but not to its collecting-error/failed-test fallback
// patterns, so this gate cannot assume FailingArtifactPath already passed
// it. A rejected path returns "", which ApplyRepairEvidenceGate turns
// into a list_files fallback instead of a malformed read_file call.
func sanitizeArtifactPath(path string) string {
	if strings.ContainsAny(path, "\n\r>") || strings.Contains(path, " ") {
		return ""
	}

	for len(path) >= 2 && path[:2] == "./" {
		path = path[2:]
	}
	for len(path) >= 3 && path[:3] == "../" {
		path = path[3:]
	}
	return path
}

// ApplyPhaseFilter drops any proposed call whose tool is not in the
// phase's allowlist.
func ApplyPhaseFilter(allowlist map[string]bool, calls []ToolCallPlan) []ToolCallPlan {
	out := make([]ToolCallPlan, 0, len(calls))
	for _, c := range calls {
		if allowlist[c.Tool] {
			out = append(out, c)
		}
	}
	return out
}
