package orchestrator

import (
	"encoding/json"

	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/state"
)

// metadataFileName is the fixed name spec.md §6 gives the per-run
// metadata file, written at the workspace root.
const metadataFileName = "synapsenet_metadata.json"

// runMetadata is the exact shape persisted to metadataFileName. PatchLog
// is a best-effort unified-diff audit trail of every file SharedState
// recorded as modified, rendered against the pre-repair snapshot; with no
// snapshot, each modified file is rendered against empty before-content.
type runMetadata struct {
	Workspace     string   `json:"workspace"`
	ModifiedFiles []string `json:"modified_files"`
	Iterations    int      `json:"iterations"`
	Replans       int      `json:"replans"`
	TestsPassed   bool     `json:"tests_passed"`
	ExitCode      int      `json:"exit_code"`
	PatchLog      string   `json:"patch_log"`
}

// exportMetadata writes the run's metadata file at the workspace root,
// called once from the SUCCESS and FAIL terminal paths. snapshot is the
// pre-repair capture taken on the first ADVANCE out of REPRODUCE; it is
// nil for a run that never got that far.
func (o *Orchestrator) exportMetadata(ss *state.SharedState, snapshot *diff.Snapshot, exitCode int, testsPassed bool) error {
	modified := append([]string{}, ss.ModifiedFiles...)
	meta := runMetadata{
		Workspace:     o.Workspace.Root(),
		ModifiedFiles: modified,
		Iterations:    ss.TotalIterations,
		Replans:       ss.ReplanCount,
		TestsPassed:   testsPassed,
		ExitCode:      exitCode,
		PatchLog:      renderPatchLog(o.Workspace, snapshot, modified),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return o.Workspace.WriteFile(metadataFileName, string(data))
}
