package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNewWorkspace(t *testing.T) {
	t.Run("valid root", func(t *testing.T) {
		ws, err := NewWorkspace(t.TempDir())
		if err != nil {
			t.Fatalf("NewWorkspace: %v", err)
		}
		if !filepath.IsAbs(ws.Root()) {
			t.Fatalf("root %q is not absolute", ws.Root())
		}
	})
	t.Run("empty root", func(t *testing.T) {
		if _, err := NewWorkspace("  "); err == nil {
			t.Fatal("expected error for empty root")
		}
	})
	t.Run("missing root", func(t *testing.T) {
		if _, err := NewWorkspace(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Fatal("expected error for missing root")
		}
	})
	t.Run("root is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewWorkspace(path); err == nil {
			t.Fatal("expected error for file root")
		}
	})
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	cases := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{name: "relative", path: "src/App.tsx", want: filepath.Join(ws.Root(), "src", "App.tsx")},
		{name: "relative with dot", path: "./README.md", want: filepath.Join(ws.Root(), "README.md")},
		{name: "absolute inside root", path: filepath.Join(ws.Root(), "index.js"), want: filepath.Join(ws.Root(), "index.js")},
		{name: "parent traversal", path: "../outside.txt", wantErr: "escapes workspace root"},
		{name: "nested traversal", path: "src/../../outside.txt", wantErr: "escapes workspace root"},
		{name: "absolute outside root", path: filepath.Join(filepath.Dir(ws.Root()), "other"), wantErr: "escapes workspace root"},
		{name: "empty", path: "  ", wantErr: "empty path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ws.Resolve(tc.path)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("Resolve(%q) err = %v, want contains %q", tc.path, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.path, err)
			}
			if got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestResolveEscapeIsTyped(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = ws.Resolve("../etc/passwd")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
}

func TestResolveRejectsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Resolve("link/escape.txt"); err == nil || !strings.Contains(err.Error(), "symlink") {
		t.Fatalf("expected symlink rejection, got %v", err)
	}
}

func TestResolveMaxDepth(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	deep := strings.Repeat("d/", defaultMaxDepth+1) + "file.txt"
	if _, err := ws.Resolve(deep); err == nil || !strings.Contains(err.Error(), "max depth") {
		t.Fatalf("expected max depth error, got %v", err)
	}
}
