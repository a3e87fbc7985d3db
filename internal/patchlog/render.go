// Package patchlog renders the before/after content of a modified file as
// a unified diff, for the run metadata file's patch_log audit trail, to
// show exactly what a repair attempt changed without re-reading the whole
// file.
//
// Line-level change detection is delegated to go-difflib's sequence
// matcher; the resulting hunks are handed to go-diff's printer so the
// final text matches the unified-diff format the rest of the ecosystem
// expects.
package patchlog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// contextLines is how many unchanged lines surround each hunk, matching
// the conventional unified-diff default.
const contextLines = 3

// Render produces a unified diff string between before and after content
// for a workspace-relative path. It returns an empty string, no error,
// when the two contents are identical.
func Render(path, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	beforeLines := splitKeepEnds(before)
	afterLines := splitKeepEnds(after)

	matcher := difflib.NewMatcher(beforeLines, afterLines)
	groups := matcher.GetGroupedOpCodes(contextLines)
	if len(groups) == 0 {
		return "", nil
	}

	hunks := make([]*diff.Hunk, 0, len(groups))
	for _, group := range groups {
		hunk, err := buildHunk(group, beforeLines, afterLines)
		if err != nil {
			return "", fmt.Errorf("building hunk for %s: %w", path, err)
		}
		hunks = append(hunks, hunk)
	}

	fileDiff := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    hunks,
	}
	out, err := diff.PrintFileDiff(fileDiff)
	if err != nil {
		return "", fmt.Errorf("printing diff for %s: %w", path, err)
	}
	return string(out), nil
}

// buildHunk converts one group of difflib opcodes into a go-diff Hunk: the
// orig/new start-line and line-count fields that drive the "@@ ... @@"
// header, plus a body of "+"/"-"/" "-prefixed lines.
func buildHunk(group []difflib.OpCode, beforeLines, afterLines []string) (*diff.Hunk, error) {
	if len(group) == 0 {
		return nil, fmt.Errorf("empty opcode group")
	}

	origStart := group[0].I1
	newStart := group[0].J1
	origEnd := group[len(group)-1].I2
	newEnd := group[len(group)-1].J2

	var body bytes.Buffer
	for _, op := range group {
		switch op.Tag {
		case 'e':
			for _, l := range beforeLines[op.I1:op.I2] {
				body.WriteString(" ")
				body.WriteString(l)
			}
		case 'd':
			for _, l := range beforeLines[op.I1:op.I2] {
				body.WriteString("-")
				body.WriteString(l)
			}
		case 'i':
			for _, l := range afterLines[op.J1:op.J2] {
				body.WriteString("+")
				body.WriteString(l)
			}
		case 'r':
			for _, l := range beforeLines[op.I1:op.I2] {
				body.WriteString("-")
				body.WriteString(l)
			}
			for _, l := range afterLines[op.J1:op.J2] {
				body.WriteString("+")
				body.WriteString(l)
			}
		}
	}

	return &diff.Hunk{
		OrigStartLine: int32(origStart + 1),
		OrigLines:     int32(origEnd - origStart),
		NewStartLine:  int32(newStart + 1),
		NewLines:      int32(newEnd - newStart),
		Body:          body.Bytes(),
	}, nil
}

// splitKeepEnds splits text into lines the way difflib expects: each
// element (but possibly the last) retains its trailing newline, so the
// rendered hunk body doesn't need a newline re-inserted per line.
func splitKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
