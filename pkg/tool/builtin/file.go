package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cexll/architect-go/pkg/security"
	"github.com/cexll/architect-go/pkg/tool"
)

const defaultMaxFileBytes = 1 << 20 // 1 MiB

var writeFileSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Path relative to the project root, e.g. src/screens/HomeScreen.tsx.",
		},
		"text": map[string]interface{}{
			"type":        "string",
			"description": "Full file contents. Existing files are overwritten.",
		},
	},
	Required: []string{"path", "text"},
}

// WriteFileTool creates or overwrites one file under the workspace root,
// creating parent directories as needed.
type WriteFileTool struct {
	ws       *security.Workspace
	maxBytes int64
}

// NewWriteFileTool constructs the tool bound to ws.
func NewWriteFileTool(ws *security.Workspace) *WriteFileTool {
	return &WriteFileTool{ws: ws, maxBytes: defaultMaxFileBytes}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write a source file into the project. Parent directories are created; existing files are overwritten."
}

func (t *WriteFileTool) Schema() *tool.JSONSchema { return writeFileSchema }

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	rel, err := requiredPath(params)
	if err != nil {
		return nil, err
	}
	text, err := stringParam(params, "text")
	if err != nil {
		return nil, err
	}
	target, err := t.ws.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := []byte(text)
	if t.maxBytes > 0 && int64(len(data)) > t.maxBytes {
		return nil, fmt.Errorf("content exceeds %d bytes limit", t.maxBytes)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("ensure directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	return &tool.ToolResult{
		Success: true,
		Output:  fmt.Sprintf("wrote %d bytes to %s", len(data), rel),
		Data: map[string]interface{}{
			"path": rel,
			"size": len(data),
		},
	}, nil
}

var readFileSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Path relative to the project root.",
		},
	},
	Required: []string{"path"},
}

// ReadFileTool returns the contents of one file under the workspace root.
type ReadFileTool struct {
	ws       *security.Workspace
	maxBytes int64
}

// NewReadFileTool constructs the tool bound to ws.
func NewReadFileTool(ws *security.Workspace) *ReadFileTool {
	return &ReadFileTool{ws: ws, maxBytes: defaultMaxFileBytes}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a file from the project and return its contents."
}

func (t *ReadFileTool) Schema() *tool.JSONSchema { return readFileSchema }

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	rel, err := requiredPath(params)
	if err != nil {
		return nil, err
	}
	target, err := t.ws.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", rel)
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}
	if t.maxBytes > 0 && info.Size() > t.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes limit", t.maxBytes)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &tool.ToolResult{
		Success: true,
		Output:  string(data),
		Data: map[string]interface{}{
			"path": rel,
			"size": len(data),
		},
	}, nil
}

var listFilesSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Directory relative to the project root; defaults to the root.",
		},
	},
}

// ListFilesTool walks a directory under the workspace root and returns one
// relative path per line, directories suffixed with a separator.
type ListFilesTool struct {
	ws *security.Workspace
}

// NewListFilesTool constructs the tool bound to ws.
func NewListFilesTool(ws *security.Workspace) *ListFilesTool {
	return &ListFilesTool{ws: ws}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "Recursively list files and directories inside the project."
}

func (t *ListFilesTool) Schema() *tool.JSONSchema { return listFilesSchema }

func (t *ListFilesTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	rel := "."
	if params != nil {
		if raw, ok := params["path"]; ok {
			value, err := coerceString(raw)
			if err != nil {
				return nil, fmt.Errorf("path must be string: %w", err)
			}
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				rel = trimmed
			}
		}
	}
	target, err := t.ws.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("directory not found: %s", rel)
		}
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", rel)
	}

	var entries []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == target {
			return nil
		}
		relPath, err := filepath.Rel(target, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relPath)
		if d.IsDir() {
			name += "/"
		}
		entries = append(entries, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	sort.Strings(entries)
	return &tool.ToolResult{
		Success: true,
		Output:  strings.Join(entries, "\n"),
		Data: map[string]interface{}{
			"path":  rel,
			"count": len(entries),
		},
	}, nil
}
