package orchestrator

import (
	"strings"

	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/patchlog"
)

// renderPatchLog builds the unified-diff audit trail for every file
// SharedState recorded as modified: before is the pre-repair snapshot's
// captured content (or "" for a file the snapshot never saw, i.e. one
// created during this run), after is the file's current content on disk.
// Files whose before/after are identical, or that fail to read, produce
// no entry — a best-effort audit trail is better than a failed run.
func renderPatchLog(ws *diff.Workspace, snapshot *diff.Snapshot, modifiedFiles []string) string {
	var sections []string
	for _, path := range modifiedFiles {
		after, err := ws.ReadFile(path)
		if err != nil {
			continue
		}
		var before string
		if snapshot != nil {
			before, _ = snapshot.Content(path)
		}
		rendered, err := patchlog.Render(path, before, after)
		if err != nil || rendered == "" {
			continue
		}
		sections = append(sections, rendered)
	}
	return strings.Join(sections, "\n")
}
