// Package security constrains every tool-provided path to one workspace
// root. Absolute paths are re-rooted rather than trusted: the escape valve
// the tools historically offered is gone on purpose.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultMaxDepth = 128

// ErrPathEscape reports a path that would leave the workspace root.
var ErrPathEscape = errors.New("security: path escapes workspace root")

// Workspace resolves and validates paths against a fixed root directory.
type Workspace struct {
	root     string
	maxDepth int
}

// NewWorkspace creates a workspace rooted at dir. The root must exist.
func NewWorkspace(dir string) (*Workspace, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("security: workspace root is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("security: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("security: workspace root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("security: workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs, maxDepth: defaultMaxDepth}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve canonicalises a tool-provided path into an absolute path inside
// the root. Relative paths are joined to the root; absolute paths must
// already sit under it. Parent traversal, excessive nesting, and symlinks on
// the way down are rejected.
func (w *Workspace) Resolve(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("security: empty path")
	}

	candidate := trimmed
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	clean := filepath.Clean(candidate)

	rel, err := filepath.Rel(w.root, clean)
	if err != nil {
		return "", fmt.Errorf("security: relativize %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, path)
	}

	depth := 0
	current := w.root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		if part == "" || part == "." {
			continue
		}
		depth++
		if w.maxDepth > 0 && depth > w.maxDepth {
			return "", fmt.Errorf("security: path exceeds max depth %d", w.maxDepth)
		}
		current = filepath.Join(current, part)
		if err := ensureNoSymlink(current); err != nil {
			return "", err
		}
	}
	return clean, nil
}

func ensureNoSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("security: lstat failed for %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("security: symlink rejected %s", path)
	}
	return nil
}
