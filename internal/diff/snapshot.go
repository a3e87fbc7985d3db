package diff

import (
	"fmt"
)

// Snapshot is a point-in-time capture of a subset of workspace files,
// taken once per run right before the first ADVANCE out of REPRODUCE.
// REPLAN restores the workspace to this captured state before resetting
// the phase back to REPRODUCE, so a rejected repair attempt never leaves
// stray edits behind.
type Snapshot struct {
	// files maps workspace-relative path to its captured content.
	files map[string]string
}

// PathPredicate decides whether a workspace-relative path belongs in a
// snapshot: typically "is this a source file under the project tree, or
// the known failing artifact".
type PathPredicate func(relPath string) bool

// Snapshot walks relDir and captures the content of every file the
// predicate accepts.
func (w *Workspace) Snapshot(relDir string, include PathPredicate) (*Snapshot, error) {
	paths, err := w.FileTree(relDir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	snap := &Snapshot{files: make(map[string]string)}
	for _, p := range paths {
		if !include(p) {
			continue
		}
		content, err := w.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("snapshot: reading %s: %w", p, err)
		}
		snap.files[p] = content
	}
	return snap, nil
}

// Restore writes every captured file back to its snapshotted content, and
// deletes any file the predicate matches that exists on disk now but was
// not part of the snapshot — i.e. a file created after the snapshot was
// taken. The first error aborts the restore and is returned, since a
// partially restored workspace is the one situation
// spec.md §7 calls fatal (ErrWorkspaceRestoreFailed in the orchestrator
// layer wraps this).
func (w *Workspace) Restore(relDir string, snap *Snapshot, include PathPredicate) error {
	for path, content := range snap.files {
		if err := w.WriteFile(path, content); err != nil {
			return fmt.Errorf("restore: writing %s: %w", path, err)
		}
	}

	currentPaths, err := w.FileTree(relDir)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for _, p := range currentPaths {
		if !include(p) {
			continue
		}
		if _, captured := snap.files[p]; captured {
			continue
		}
		if err := w.Remove(p); err != nil {
			return fmt.Errorf("restore: removing %s: %w", p, err)
		}
	}
	return nil
}

// Content returns the captured content of path and whether it was part
// of the snapshot at all — false for a file created after the snapshot
// was taken.
func (s *Snapshot) Content(path string) (string, bool) {
	content, ok := s.files[path]
	return content, ok
}

// DefaultSnapshotPredicate builds the predicate spec.md §9 describes:
// files ending in sourceExt under the source tree, plus the known failing
// artifact path if it is non-empty.
func DefaultSnapshotPredicate(sourceExt, failingArtifactPath string) PathPredicate {
	return func(relPath string) bool {
		if failingArtifactPath != "" && relPath == failingArtifactPath {
			return true
		}
		return len(relPath) > len(sourceExt) && relPath[len(relPath)-len(sourceExt):] == sourceExt
	}
}
