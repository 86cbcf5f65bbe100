package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

const architectDirName = ".architect"

// Loader loads, validates, and caches the settings found under a project
// root's .architect directory.
type Loader struct {
	root        string
	explicitDir string

	mu   sync.Mutex
	last atomic.Pointer[Settings]
}

// LoaderOption customizes loader behaviour.
type LoaderOption func(*Loader)

// WithConfigDir forces the loader to use a specific .architect directory.
func WithConfigDir(path string) LoaderOption {
	return func(l *Loader) {
		l.explicitDir = path
	}
}

// NewLoader wires a loader for the provided project root.
func NewLoader(root string, opts ...LoaderOption) (*Loader, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("config: project root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("config: resolve root: %w", err)
	}
	loader := &Loader{root: absRoot}
	for _, opt := range opts {
		opt(loader)
	}
	if loader.explicitDir != "" {
		dir, err := filepath.Abs(loader.explicitDir)
		if err != nil {
			return nil, fmt.Errorf("config: resolve config dir: %w", err)
		}
		loader.explicitDir = dir
	}
	return loader, nil
}

// Root returns the absolute project root.
func (l *Loader) Root() string { return l.root }

// Last returns the most recent valid settings.
func (l *Loader) Last() (*Settings, bool) {
	cfg := l.last.Load()
	if cfg == nil {
		return nil, false
	}
	return cfg, true
}

// Load resolves .architect/, parses the config file, overlays the
// environment, and validates the result.
func (l *Loader) Load() (*Settings, error) {
	return l.LoadWith(nil)
}

// LoadWith loads like Load but lets override mutate the settings between
// the environment overlay and validation. Callers use it to apply CLI
// flags.
func (l *Loader) LoadWith(override func(*Settings)) (*Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadOnce(override)
	if err != nil {
		return nil, err
	}
	l.last.Store(cfg)
	return cfg, nil
}

// Reload refreshes the settings, keeping the last good state on error.
func (l *Loader) Reload() (*Settings, error) {
	prev, _ := l.Last()
	cfg, err := l.Load()
	if err != nil {
		if prev != nil {
			return prev, fmt.Errorf("config: reload failed, keeping last good config: %w", err)
		}
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadOnce(override func(*Settings)) (*Settings, error) {
	dir, err := l.locateConfigDir()
	if err != nil {
		return nil, err
	}
	path, raw, err := readConfigPayload(dir)
	var cfg *Settings
	switch {
	case err == nil:
		cfg, err = ParseSettings(raw)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		cfg = &Settings{}
		raw = []byte{}
	default:
		return nil, err
	}
	cfg.SourcePath = path
	if cfg.Workspace == "" {
		cfg.Workspace = l.root
	}
	cfg.ApplyEnv()
	if override != nil {
		override(cfg)
		cfg.Normalize()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SourceHash = computeHash(raw)
	return cfg, nil
}

func (l *Loader) locateConfigDir() (string, error) {
	if l.explicitDir != "" {
		if info, err := os.Stat(l.explicitDir); err == nil && info.IsDir() {
			return l.explicitDir, nil
		}
		return "", fmt.Errorf("config: override %s not found", l.explicitDir)
	}
	for _, dir := range l.candidates() {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	// Missing directory is not fatal, the environment can supply everything.
	return filepath.Join(l.root, architectDirName), nil
}

// candidates walks from the project root up to the filesystem root, then
// falls back to the home directory.
func (l *Loader) candidates() []string {
	var dirs []string
	seen := map[string]struct{}{}
	current := l.root
	for {
		candidate := filepath.Join(current, architectDirName)
		if _, ok := seen[candidate]; !ok {
			dirs = append(dirs, candidate)
			seen[candidate] = struct{}{}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, architectDirName)
		if _, ok := seen[candidate]; !ok {
			dirs = append(dirs, candidate)
		}
	}
	return dirs
}

func readConfigPayload(dir string) (string, []byte, error) {
	candidates := []string{"config.yaml", "config.yml", "config.json"}
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return path, nil, err
		}
		return path, data, nil
	}
	return filepath.Join(dir, "config.yaml"), nil, fs.ErrNotExist
}
