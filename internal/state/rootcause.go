package state

import (
	"fmt"
	"regexp"
	"strings"
)

// RootCauseAnalysis is the structured diagnosis the REPAIR_ANALYZE phase
// produces instead of a tool call. It is validated deterministically — no
// second LLM call, no human in the loop — before the Mediator will ever
// ADVANCE past REPAIR_ANALYZE.
type RootCauseAnalysis struct {
	ArtifactPath              string
	ArtifactLine              int
	RootCauseSummary          string
	CausalExplanation         string
	MinimalFixStrategy        string
	ProposedSearchBlock       string
	WhyPreviousAttemptsFailed string

	// Valid and InvalidReason are derived by Validate; they are not set by
	// the LLM and have no meaning until Validate has been called.
	Valid         bool
	InvalidReason string
}

// rootCauseValidationInput carries the pieces of SharedState a
// RootCauseAnalysis is validated against: the artifact/line the failure
// extraction already pinned down, and the cached content of that file if
// the Executor has read it.
type rootCauseValidationInput struct {
	KnownArtifactPath  string
	KnownArtifactLine  int
	CachedFileContent  string
	CachedFileIsCached bool
}

// lineNumberPrefix strips the "NNN | " / "NNN |" line-number gutter that
// cacheFileRead prepends to every cached line, and the ">>" marker used to
// flag the failing line within a window.
var lineNumberPrefix = regexp.MustCompile(`^\s*\d+\s*\|\s?`)
var markerPrefix = regexp.MustCompile(`^\s*>>\s?`)

// normalizeForSearch reduces a block of text to a canonical form for
// substring-containment checking: unify line endings, drop the
// line-number/marker gutters and truncation-elision lines a cached file
// window carries, collapse internal whitespace on each line, drop blank
// lines entirely, and rejoin with a single newline. Applying it twice is
// a no-op — the second pass has nothing left to strip, collapse, or drop.
func normalizeForSearch(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "# <<< TRUNCATED:") {
			continue
		}
		line = markerPrefix.ReplaceAllString(line, "")
		line = lineNumberPrefix.ReplaceAllString(line, "")
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// artifactLineTolerance computes the dynamic acceptance window around the
// failure extraction's known line number. It widens with file size so a
// diagnosis pointing at line 40 of a 2000-line file isn't rejected just
// because the extracted line was 35, while still catching a diagnosis that
// is looking at an entirely different function.
func artifactLineTolerance(cachedLines, knownArtifactLine, artifactLine int) int {
	effective := cachedLines
	if v := knownArtifactLine * 4; v > effective {
		effective = v
	}
	if v := artifactLine * 4; v > effective {
		effective = v
	}
	tolerance := int(float64(effective) * 0.20)
	if tolerance < 75 {
		tolerance = 75
	}
	return tolerance
}

// Validate runs the deterministic acceptance checks from spec.md §4.7 /
// §3 against the rest of SharedState, sets r.Valid and r.InvalidReason,
// and returns them again for convenience.
//
// Check order:
//  1. Required free-text fields must be non-empty (hard fail).
//  2. ArtifactPath must be non-empty (hard fail); a mismatch against the
//     already-known failing artifact is logged by the caller but never
//     rejects here — the LLM may legitimately point at a different file
//     than the one the test runner's traceback named.
//  3. ArtifactLine, when both it and the known artifact line are
//     positive, must fall within the dynamic tolerance window.
//  4. ProposedSearchBlock, when present and the failing file's content is
//     cached, must appear (after normalization) within that cached
//     content.
func (r *RootCauseAnalysis) Validate(in rootCauseValidationInput) (bool, string) {
	if strings.TrimSpace(r.RootCauseSummary) == "" {
		return r.reject("rootCauseSummary must not be empty")
	}
	if strings.TrimSpace(r.CausalExplanation) == "" {
		return r.reject("causalExplanation must not be empty")
	}
	if strings.TrimSpace(r.MinimalFixStrategy) == "" {
		return r.reject("minimalFixStrategy must not be empty")
	}
	if strings.TrimSpace(r.ArtifactPath) == "" {
		return r.reject("artifactPath must not be empty")
	}

	if in.KnownArtifactLine > 0 && r.ArtifactLine > 0 {
		delta := r.ArtifactLine - in.KnownArtifactLine
		if delta < 0 {
			delta = -delta
		}
		tolerance := artifactLineTolerance(countLines(in.CachedFileContent), in.KnownArtifactLine, r.ArtifactLine)
		if delta > tolerance {
			return r.reject(fmt.Sprintf(
				"artifactLine %d is outside tolerance %d of known failing line %d",
				r.ArtifactLine, tolerance, in.KnownArtifactLine))
		}
	}

	if strings.TrimSpace(r.ProposedSearchBlock) != "" && in.CachedFileIsCached {
		normBlock := normalizeForSearch(r.ProposedSearchBlock)
		if len(normBlock) >= 10 {
			normContent := normalizeForSearch(in.CachedFileContent)
			if !strings.Contains(normContent, normBlock) {
				return r.reject("proposedSearchBlock does not appear in the cached file content")
			}
		}
	}

	r.Valid = true
	r.InvalidReason = ""
	return true, ""
}

// ValidateAgainst runs Validate using the pieces of the given SharedState
// that describe the currently-known failure: the tracked failing artifact
// and line, and that artifact's cached content if the Executor has already
// read it. This is the entry point every caller outside this package uses;
// rootCauseValidationInput itself stays unexported so its shape can change
// without touching the Executor.
func (r *RootCauseAnalysis) ValidateAgainst(ss *SharedState) (bool, string) {
	cached, isCached := ss.RecentFileReads[ss.FailingArtifactPath]
	return r.Validate(rootCauseValidationInput{
		KnownArtifactPath:  ss.FailingArtifactPath,
		KnownArtifactLine:  ss.FailingArtifactLine,
		CachedFileContent:  cached.Content,
		CachedFileIsCached: isCached,
	})
}

func (r *RootCauseAnalysis) reject(reason string) (bool, string) {
	r.Valid = false
	r.InvalidReason = reason
	return false, reason
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
