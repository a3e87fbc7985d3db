package tools

import (
	"context"
	"fmt"

	"github.com/synapsenet/cir/internal/diff"
	"github.com/synapsenet/cir/internal/state"
)

// grepMaxResults caps how many grep matches are returned in one call, per
// spec.md §4.3.
const grepMaxResults = 100

// ReadFileTool reads a workspace file and caches its (possibly truncated)
// content onto SharedState so later REPAIR_ANALYZE validation and the
// repair evidence gate can see what has already been read.
type ReadFileTool struct {
	WS *diff.Workspace
	SS *state.SharedState
}

func (t *ReadFileTool) Definition() Definition {
	return Definition{Name: "read_file", Description: "Read a file from the workspace.", Category: CategoryRead, Priority: 10}
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("read_file: missing required argument \"path\"")
	}
	content, err := t.WS.ReadFile(path)
	if err != nil {
		return "", err
	}
	entry := t.SS.CacheFileRead(path, content)
	return entry.Content, nil
}

// WriteFileTool writes a file, creating parent directories as needed, and
// records the path as modified.
type WriteFileTool struct {
	WS *diff.Workspace
	SS *state.SharedState
}

func (t *WriteFileTool) Definition() Definition {
	return Definition{Name: "write_file", Description: "Write (create or overwrite) a file in the workspace.", Category: CategoryWrite, Priority: 30}
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("write_file: missing required argument \"path\"")
	}
	content, _ := args["content"].(string)
	if err := t.WS.WriteFile(path, content); err != nil {
		return "", err
	}
	t.SS.AddModifiedFile(path)
	return fmt.Sprintf("wrote %s", path), nil
}

// ReplaceInFileTool applies the two-tier search/replace and records the
// path as modified on success.
type ReplaceInFileTool struct {
	WS *diff.Workspace
	SS *state.SharedState
}

func (t *ReplaceInFileTool) Definition() Definition {
	return Definition{Name: "replace_in_file", Description: "Replace one occurrence of a search block with a replacement block.", Category: CategoryWrite, Priority: 20}
}

func (t *ReplaceInFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	search, _ := args["search"].(string)
	replace, _ := args["replace"].(string)
	if path == "" || search == "" {
		return "", fmt.Errorf("replace_in_file: missing required argument \"path\" or \"search\"")
	}
	if err := t.WS.ReplaceInFile(path, search, replace); err != nil {
		return "", err
	}
	t.SS.AddModifiedFile(path)
	return fmt.Sprintf("replaced content in %s", path), nil
}

// GrepTool searches the workspace for a literal substring.
type GrepTool struct {
	WS *diff.Workspace
}

func (t *GrepTool) Definition() Definition {
	return Definition{Name: "grep", Description: "Search workspace files for a literal substring.", Category: CategoryRead, Priority: 15}
}

func (t *GrepTool) Execute(_ context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return "", fmt.Errorf("grep: missing required argument \"pattern\"")
	}
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	results, err := t.WS.Grep(path, pattern, grepMaxResults)
	if err != nil {
		return "", err
	}
	out := ""
	for _, r := range results {
		out += r + "\n"
	}
	return out, nil
}

// ListFilesTool lists the immediate entries of a directory and marks
// workspace structure as discovered.
type ListFilesTool struct {
	WS *diff.Workspace
	SS *state.SharedState
}

func (t *ListFilesTool) Definition() Definition {
	return Definition{Name: "list_files", Description: "List the immediate entries of a directory.", Category: CategoryDiscovery, Priority: 1}
}

func (t *ListFilesTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	names, err := t.WS.ListFiles(path)
	if err != nil {
		return "", err
	}
	t.SS.StructureDiscovered = true
	out := ""
	for _, n := range names {
		out += n + "\n"
	}
	return out, nil
}

// FileTreeTool recursively lists every file under a directory and marks
// workspace structure as discovered.
type FileTreeTool struct {
	WS *diff.Workspace
	SS *state.SharedState
}

func (t *FileTreeTool) Definition() Definition {
	return Definition{Name: "file_tree", Description: "Recursively list every file under a directory.", Category: CategoryDiscovery, Priority: 2}
}

func (t *FileTreeTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	paths, err := t.WS.FileTree(path)
	if err != nil {
		return "", err
	}
	t.SS.StructureDiscovered = true
	out := ""
	for _, p := range paths {
		out += p + "\n"
	}
	return out, nil
}
