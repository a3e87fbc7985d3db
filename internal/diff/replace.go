package diff

import (
	"fmt"
	"strings"
)

// ErrSearchBlockNotFound and ErrSearchBlockAmbiguous are the two failure
// modes replace_in_file can report; the Mediator's REPAIR_PATCH escalation
// ladder branches on the error text containing "not found" or
// "multiple times", so these messages are deliberately stable.
type ErrSearchBlockNotFound struct {
	Path    string
	Snippet string
}

func (e *ErrSearchBlockNotFound) Error() string {
	return fmt.Sprintf("Search block not found in %s. Nearby content:\n%s", e.Path, e.Snippet)
}

type ErrSearchBlockAmbiguous struct {
	Path  string
	Count int
}

func (e *ErrSearchBlockAmbiguous) Error() string {
	return fmt.Sprintf("search block found multiple times (%d occurrences) in %s", e.Count, e.Path)
}

// ReplaceInFile replaces exactly one occurrence of searchBlock with
// replaceBlock in the workspace-relative file at path. It requires the
// search block to appear exactly once, trying an exact substring match
// first and falling back to a whitespace-normalized fuzzy match across
// same-length line windows when the exact match fails.
func (w *Workspace) ReplaceInFile(path, searchBlock, replaceBlock string) error {
	content, err := w.ReadFile(path)
	if err != nil {
		return err
	}

	newContent, err := replaceOnce(content, searchBlock, replaceBlock, path)
	if err != nil {
		return err
	}
	return w.WriteFile(path, newContent)
}

// replaceOnce performs the two-tier match-and-replace against in-memory
// content, split out from ReplaceInFile so it can be exercised directly
// in tests without touching the filesystem.
func replaceOnce(content, searchBlock, replaceBlock, path string) (string, error) {
	count := strings.Count(content, searchBlock)
	if count == 1 {
		return strings.Replace(content, searchBlock, replaceBlock, 1), nil
	}
	if count > 1 {
		return "", &ErrSearchBlockAmbiguous{Path: path, Count: count}
	}

	// Exact match failed entirely (count == 0): fall back to a
	// whitespace-normalized match across windows of the same line count
	// as the search block.
	start, end, err := fuzzyFindWindow(content, searchBlock, path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(content, "\n")
	replaced := append(append([]string{}, lines[:start]...), strings.Split(replaceBlock, "\n")...)
	replaced = append(replaced, lines[end:]...)
	return strings.Join(replaced, "\n"), nil
}

// fuzzyFindWindow slides a window the same number of lines as
// searchBlock across content's lines, comparing each window to the
// search block after collapsing internal whitespace on every line. It
// returns the [start,end) line range of the unique match.
func fuzzyFindWindow(content, searchBlock, path string) (start, end int, err error) {
	searchLines := strings.Split(searchBlock, "\n")
	normSearch := make([]string, len(searchLines))
	for i, l := range searchLines {
		normSearch[i] = collapseWhitespace(l)
	}

	contentLines := strings.Split(content, "\n")
	windowSize := len(searchLines)

	var matchStarts []int
	for i := 0; i+windowSize <= len(contentLines); i++ {
		matched := true
		for j := 0; j < windowSize; j++ {
			if collapseWhitespace(contentLines[i+j]) != normSearch[j] {
				matched = false
				break
			}
		}
		if matched {
			matchStarts = append(matchStarts, i)
		}
	}

	switch len(matchStarts) {
	case 0:
		return 0, 0, &ErrSearchBlockNotFound{Path: path, Snippet: contextSnippet(contentLines, searchLines)}
	case 1:
		return matchStarts[0], matchStarts[0] + windowSize, nil
	default:
		return 0, 0, &ErrSearchBlockAmbiguous{Path: path, Count: len(matchStarts)}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// contextSnippet builds the "nearby content" hint ErrSearchBlockNotFound
// carries: the first line of the search block, if it appears anywhere in
// the file on its own, plus a few lines of surrounding context; otherwise
// the first few lines of the file.
func contextSnippet(contentLines, searchLines []string) string {
	if len(searchLines) == 0 {
		return ""
	}
	needle := collapseWhitespace(searchLines[0])
	if needle != "" {
		for i, line := range contentLines {
			if collapseWhitespace(line) == needle {
				lo, hi := i-2, i+3
				if lo < 0 {
					lo = 0
				}
				if hi > len(contentLines) {
					hi = len(contentLines)
				}
				return strings.Join(contentLines[lo:hi], "\n")
			}
		}
	}
	hi := 10
	if hi > len(contentLines) {
		hi = len(contentLines)
	}
	return strings.Join(contentLines[:hi], "\n")
}
