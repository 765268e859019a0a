package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// maxInlineDiffBytes bounds how much old/new content a file-edit result
// inlines for the caller's diff view.
const maxInlineDiffBytes = 4096

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out, WeaklyTypedInput: true})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// --- read_file ---

type ReadFileArgs struct {
	Path string `json:"path" mapstructure:"path"`
}

type readFileTool struct{ root string }

// NewReadFileTool reads a UTF-8 text file relative to root.
func NewReadFileTool(root string) Tool { return &readFileTool{root: root} }

func (t *readFileTool) Name() string        { return "read_file" }
func (t *readFileTool) Description() string { return "Read the contents of a text file." }
func (t *readFileTool) Schema() *jsonschema.Schema { return SchemaFor(ReadFileArgs{}) }

func (t *readFileTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a ReadFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full, err := resolvePath(t.root, a.Path)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return ErrorResult(fmt.Sprintf("read %s: %v", a.Path, err), time.Since(start)), nil
	}
	return SuccessResult(map[string]any{
		"path":    a.Path,
		"content": string(data),
		"bytes":   len(data),
	}, time.Since(start)), nil
}

// --- create_file ---

type CreateFileArgs struct {
	Path    string `json:"path" mapstructure:"path"`
	Content string `json:"content" mapstructure:"content"`
}

type createFileTool struct {
	root    string
	history *History
}

// NewCreateFileTool writes content to a new (or overwritten) file,
// recording prior content in history for undo_edit.
func NewCreateFileTool(root string, history *History) Tool {
	return &createFileTool{root: root, history: history}
}

func (t *createFileTool) Name() string { return "create_file" }
func (t *createFileTool) Description() string {
	return "Create a file with the given content, overwriting it if it already exists."
}
func (t *createFileTool) Schema() *jsonschema.Schema { return SchemaFor(CreateFileArgs{}) }

func (t *createFileTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a CreateFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full, err := resolvePath(t.root, a.Path)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("create parent dirs: %v", err), time.Since(start)), nil
	}
	oldContent, _ := os.ReadFile(full)
	if err := os.WriteFile(full, []byte(a.Content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", a.Path, err), time.Since(start)), nil
	}
	t.history.Record(full, string(oldContent), a.Content)

	out := map[string]any{
		"success":       true,
		"path":          a.Path,
		"bytes_written": len(a.Content),
	}
	if len(oldContent)+len(a.Content) <= maxInlineDiffBytes {
		out["old_content"] = string(oldContent)
		out["new_content"] = a.Content
	}
	return SuccessResult(out, time.Since(start)), nil
}

// --- edit_file (single find-replace) ---

type EditFileArgs struct {
	Path        string `json:"path" mapstructure:"path"`
	OldString   string `json:"old_string" mapstructure:"old_string"`
	NewString   string `json:"new_string" mapstructure:"new_string"`
	ReplaceAll  bool   `json:"replace_all,omitempty" mapstructure:"replace_all"`
}

type editFileTool struct {
	root    string
	history *History
}

// NewEditFileTool replaces a single occurrence (or all occurrences, with
// replace_all) of old_string with new_string in an existing file.
func NewEditFileTool(root string, history *History) Tool {
	return &editFileTool{root: root, history: history}
}

func (t *editFileTool) Name() string { return "edit_file" }
func (t *editFileTool) Description() string {
	return "Find and replace an exact string within an existing file."
}
func (t *editFileTool) Schema() *jsonschema.Schema { return SchemaFor(EditFileArgs{}) }

func (t *editFileTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a EditFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full, err := resolvePath(t.root, a.Path)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	if a.OldString == "" {
		return ErrorResult("old_string cannot be empty for edit_file; use create_file to overwrite", time.Since(start)), nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return ErrorResult(fmt.Sprintf("file not found: %s", a.Path), time.Since(start)), nil
	}
	content := string(data)

	count := strings.Count(content, a.OldString)
	if count == 0 {
		return ErrorResult("old_string not found in file", time.Since(start)), nil
	}
	if count > 1 && !a.ReplaceAll {
		return ErrorResult(fmt.Sprintf("old_string matches %d times; pass replace_all=true or narrow the match", count), time.Since(start)), nil
	}

	var newContent string
	replaced := 1
	if a.ReplaceAll {
		newContent = strings.ReplaceAll(content, a.OldString, a.NewString)
		replaced = count
	} else {
		newContent = strings.Replace(content, a.OldString, a.NewString, 1)
	}

	if err := os.WriteFile(full, []byte(newContent), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", a.Path, err), time.Since(start)), nil
	}
	t.history.Record(full, content, newContent)

	out := map[string]any{
		"success":           true,
		"path":              a.Path,
		"matches_found":     count,
		"matches_replaced":  replaced,
	}
	if len(content)+len(newContent) <= maxInlineDiffBytes {
		out["old_content"] = content
		out["new_content"] = newContent
	}
	return SuccessResult(out, time.Since(start)), nil
}

// --- multi_edit_file (ordered batch of find-replace edits) ---

type MultiEditOperation struct {
	OldString  string `json:"old_string" mapstructure:"old_string"`
	NewString  string `json:"new_string" mapstructure:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty" mapstructure:"replace_all"`
}

type MultiEditFileArgs struct {
	Path  string                `json:"path" mapstructure:"path"`
	Edits []MultiEditOperation  `json:"edits" mapstructure:"edits"`
}

type multiEditFileTool struct {
	root    string
	history *History
}

// NewMultiEditFileTool applies an ordered list of find-replace edits to
// one file as a single atomic write: either all edits apply or none do.
func NewMultiEditFileTool(root string, history *History) Tool {
	return &multiEditFileTool{root: root, history: history}
}

func (t *multiEditFileTool) Name() string { return "multi_edit_file" }
func (t *multiEditFileTool) Description() string {
	return "Apply an ordered sequence of find-replace edits to one file atomically."
}
func (t *multiEditFileTool) Schema() *jsonschema.Schema { return SchemaFor(MultiEditFileArgs{}) }

func (t *multiEditFileTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a MultiEditFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full, err := resolvePath(t.root, a.Path)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return ErrorResult(fmt.Sprintf("file not found: %s", a.Path), time.Since(start)), nil
	}
	original := string(data)
	content := original

	totalMatches, totalReplaced := 0, 0
	for i, edit := range a.Edits {
		n := i + 1
		if edit.OldString == "" {
			return ErrorResult(fmt.Sprintf("edit %d: old_string cannot be empty in multi_edit_file", n), time.Since(start)), nil
		}
		count := strings.Count(content, edit.OldString)
		if count == 0 {
			return ErrorResult(fmt.Sprintf("edit %d: old_string not found", n), time.Since(start)), nil
		}
		if count > 1 && !edit.ReplaceAll {
			return ErrorResult(fmt.Sprintf("edit %d: old_string matches %d times; pass replace_all=true", n, count), time.Since(start)), nil
		}
		if edit.ReplaceAll {
			content = strings.ReplaceAll(content, edit.OldString, edit.NewString)
			totalMatches += count
			totalReplaced += count
		} else {
			content = strings.Replace(content, edit.OldString, edit.NewString, 1)
			totalMatches++
			totalReplaced++
		}
	}

	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", a.Path, err), time.Since(start)), nil
	}
	t.history.Record(full, original, content)

	out := map[string]any{
		"success":               true,
		"path":                  a.Path,
		"edits_applied":         len(a.Edits),
		"total_matches_found":   totalMatches,
		"total_matches_replaced": totalReplaced,
	}
	if len(original)+len(content) <= maxInlineDiffBytes {
		out["old_content"] = original
		out["new_content"] = content
	}
	return SuccessResult(out, time.Since(start)), nil
}

// --- delete_file ---

type DeleteFileArgs struct {
	Path string `json:"path" mapstructure:"path"`
}

type deleteFileTool struct {
	root    string
	history *History
}

// NewDeleteFileTool deletes a file, recording its content for undo_edit.
func NewDeleteFileTool(root string, history *History) Tool {
	return &deleteFileTool{root: root, history: history}
}

func (t *deleteFileTool) Name() string        { return "delete_file" }
func (t *deleteFileTool) Description() string { return "Delete a file." }
func (t *deleteFileTool) Schema() *jsonschema.Schema { return SchemaFor(DeleteFileArgs{}) }

func (t *deleteFileTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a DeleteFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full, err := resolvePath(t.root, a.Path)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return ErrorResult(fmt.Sprintf("file not found: %s", a.Path), time.Since(start)), nil
	}
	if err := os.Remove(full); err != nil {
		return ErrorResult(fmt.Sprintf("delete %s: %v", a.Path, err), time.Since(start)), nil
	}
	t.history.Record(full, string(data), "")
	return SuccessResult(map[string]any{"success": true, "path": a.Path}, time.Since(start)), nil
}

// --- undo_edit ---

type UndoEditArgs struct {
	Path string `json:"path" mapstructure:"path"`
}

type undoEditTool struct {
	root    string
	history *History
}

// NewUndoEditTool restores the most recent prior content recorded for a
// file by create_file, edit_file, multi_edit_file, or delete_file.
func NewUndoEditTool(root string, history *History) Tool {
	return &undoEditTool{root: root, history: history}
}

func (t *undoEditTool) Name() string        { return "undo_edit" }
func (t *undoEditTool) Description() string { return "Undo the most recent edit to a file in this session." }
func (t *undoEditTool) Schema() *jsonschema.Schema { return SchemaFor(UndoEditArgs{}) }

func (t *undoEditTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a UndoEditArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full, err := resolvePath(t.root, a.Path)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	prior, ok := t.history.Undo(full)
	if !ok {
		return ErrorResult(fmt.Sprintf("no undo history for %s", a.Path), time.Since(start)), nil
	}
	if prior == "" {
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return ErrorResult(fmt.Sprintf("undo delete %s: %v", a.Path, err), time.Since(start)), nil
		}
		return SuccessResult(map[string]any{"success": true, "path": a.Path, "restored": false}, time.Since(start)), nil
	}
	if err := os.WriteFile(full, []byte(prior), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("undo write %s: %v", a.Path, err), time.Since(start)), nil
	}
	return SuccessResult(map[string]any{"success": true, "path": a.Path, "restored": true}, time.Since(start)), nil
}

// --- list_directory ---

type ListDirectoryArgs struct {
	Path string `json:"path,omitempty" mapstructure:"path"`
}

type listDirectoryTool struct{ root string }

// NewListDirectoryTool lists the immediate entries of a directory.
func NewListDirectoryTool(root string) Tool { return &listDirectoryTool{root: root} }

func (t *listDirectoryTool) Name() string        { return "list_directory" }
func (t *listDirectoryTool) Description() string { return "List the entries of a directory." }
func (t *listDirectoryTool) Schema() *jsonschema.Schema { return SchemaFor(ListDirectoryArgs{}) }

func (t *listDirectoryTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a ListDirectoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	p := a.Path
	if p == "" {
		p = "."
	}
	full, err := resolvePath(t.root, p)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return ErrorResult(fmt.Sprintf("list %s: %v", p, err), time.Since(start)), nil
	}

	type entry struct {
		Name  string `json:"name"`
		IsDir bool   `json:"is_dir"`
		Bytes int64  `json:"bytes"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, entry{Name: e.Name(), IsDir: e.IsDir(), Bytes: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return SuccessResult(map[string]any{"path": p, "entries": out}, time.Since(start)), nil
}
