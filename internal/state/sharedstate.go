package state

import (
	"fmt"
	"strings"
)

// cachedFileWindowLines is the cap cacheFileRead enforces on any single
// cached file: past this many lines the head/tail split kicks in so the
// Executor's prompt never carries an entire large source file verbatim.
const cachedFileWindowLines = 500

// cachedFileHeadFraction and cachedFileTailFraction split the retained
// budget 80/20 between the start and end of a truncated file: most of a
// traceback's useful context is near the top of a file (imports, the
// function under test) but the tail sometimes carries the failing
// assertion itself.
const (
	cachedFileHeadFraction = 0.8
	cachedFileTailFraction = 0.2
)

// truncationMarker is inserted exactly once, between the retained head and
// tail, whenever a cached file is truncated.
const truncationMarkerFormat = "# <<< TRUNCATED: %d lines omitted >>>"

// CachedFile is one entry in SharedState's file-read cache.
type CachedFile struct {
	Content    string
	TotalLines int
	Truncated  bool
}

// SharedState is the single mutable object the Orchestrator owns for the
// lifetime of one CIR run. Every role reads and writes through it; there
// is no message bus and no per-role copy — spec.md §9 is explicit that
// this is by design, not an oversight.
type SharedState struct {
	Goal Goal

	CurrentPlan           PlannerOutput
	CurrentTaskIndex      int
	AttemptsOnCurrentTask int
	TotalIterations       int
	CurrentPhase          RepairPhase

	LastTestResults *TestResults
	ModifiedFiles   []string

	FailingArtifactPath string
	FailingArtifactLine int

	CollectionFailureSubtype FailureType
	CollectionFailureReason  string

	LastToolError         string
	ConsecutiveToolErrors int

	LastRootCauseAnalysis *RootCauseAnalysis
	RepairHistory         []RepairAttempt

	RecentFileReads     map[string]CachedFile
	StructureDiscovered bool

	FailureObserved bool
	ReplanCount     int
	ToolCallCount   int
}

// NewSharedState builds a fresh SharedState for a run, seeded with its
// goal and starting in REPRODUCE.
func NewSharedState(goal Goal) *SharedState {
	return &SharedState{
		Goal:            goal,
		CurrentPhase:    PhaseReproduce,
		RecentFileReads: make(map[string]CachedFile),
	}
}

// normalizePath canonicalizes a workspace-relative path the way every
// SharedState method that stores a path expects it: no leading "./", no
// trailing "/", no doubled separators.
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "./")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.TrimSuffix(p, "/")
	return p
}

// AddModifiedFile records a path as modified, normalizing it first and
// skipping it if already present. Insertion order is preserved — the
// benchmark log and the persisted metadata file both want a stable,
// first-seen order rather than a sorted one.
func (s *SharedState) AddModifiedFile(path string) {
	path = normalizePath(path)
	for _, existing := range s.ModifiedFiles {
		if existing == path {
			return
		}
	}
	s.ModifiedFiles = append(s.ModifiedFiles, path)
}

// SetLastTestResults installs the most recent TestResults. A clean,
// all-passed result clears every piece of stale collection-failure state —
// once the suite collects and passes, a previously recorded
// COLLECTION_ERROR subtype/reason no longer describes reality.
func (s *SharedState) SetLastTestResults(results TestResults) {
	s.LastTestResults = &results
	if results.AllPassed() {
		s.CollectionFailureSubtype = ""
		s.CollectionFailureReason = ""
	}
}

// CacheFileRead stores a file's content, truncating to the head/tail
// window if it exceeds cachedFileWindowLines. The stored content always
// carries line-number prefixes so downstream proposedSearchBlock
// normalization can strip them back out symmetrically.
func (s *SharedState) CacheFileRead(path string, rawContent string) CachedFile {
	path = normalizePath(path)
	lines := strings.Split(rawContent, "\n")
	total := len(lines)

	numbered := make([]string, total)
	for i, l := range lines {
		numbered[i] = lineWithNumber(i+1, l)
	}

	var entry CachedFile
	if total <= cachedFileWindowLines {
		entry = CachedFile{Content: strings.Join(numbered, "\n"), TotalLines: total, Truncated: false}
	} else {
		headCount := int(float64(cachedFileWindowLines) * cachedFileHeadFraction)
		tailCount := cachedFileWindowLines - headCount
		head := numbered[:headCount]
		tail := numbered[total-tailCount:]
		omitted := total - headCount - tailCount
		markerLine := marker(omitted)
		combined := append(append(append([]string{}, head...), markerLine), tail...)
		entry = CachedFile{Content: strings.Join(combined, "\n"), TotalLines: total, Truncated: true}
	}

	s.RecentFileReads[path] = entry
	return entry
}

func lineWithNumber(n int, content string) string {
	return fmt.Sprintf("%d | %s", n, content)
}

func marker(omitted int) string {
	return fmt.Sprintf(truncationMarkerFormat, omitted)
}

// ClearFileCache drops every cached file read, resets the discovery flag,
// and clears collection-failure metadata. Used when the workspace has
// been restored from a snapshot and any cached content is now stale.
func (s *SharedState) ClearFileCache() {
	s.RecentFileReads = make(map[string]CachedFile)
	s.StructureDiscovered = false
	s.CollectionFailureSubtype = ""
	s.CollectionFailureReason = ""
}

// SoftReset is the REPLAN-path reset: it clears only collection-failure
// metadata and the tool-error escalation counters, leaving the file cache,
// discovery flag, last test results, failing-artifact pointer, and last
// root-cause analysis untouched. Those survive a REPLAN because they
// describe the defect itself, not the abandoned repair attempt.
func (s *SharedState) SoftReset() {
	s.CollectionFailureSubtype = ""
	s.CollectionFailureReason = ""
	s.LastToolError = ""
	s.ConsecutiveToolErrors = 0
}

// AddRepairAttempt appends to the bounded repair history, dropping the
// oldest entry once the cap is exceeded.
func (s *SharedState) AddRepairAttempt(attempt RepairAttempt) {
	s.RepairHistory = append(s.RepairHistory, attempt)
	if len(s.RepairHistory) > maxRepairHistory {
		s.RepairHistory = s.RepairHistory[len(s.RepairHistory)-maxRepairHistory:]
	}
}

// ClearModifiedFiles drops the modified-files list. Called unconditionally
// on REPLAN, before SoftReset, whether or not a workspace snapshot was
// actually restored — a REPLAN always abandons the current repair
// attempt's edits.
func (s *SharedState) ClearModifiedFiles() {
	s.ModifiedFiles = nil
}
