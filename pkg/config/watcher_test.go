package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	dir := filepath.Join(root, ".architect")
	path := writeConfig(t, dir, "config.yaml", "provider: anthropic\napi_key: sk-v1\nimage_dir: designs\n")

	loader, err := NewLoader(root, WithConfigDir(dir))
	require.NoError(t, err)
	_, err = loader.Load()
	require.NoError(t, err)

	reloads := make(chan *Settings, 4)
	watcher := NewWatcher(loader, func(cfg *Settings, err error) {
		if err == nil {
			reloads <- cfg
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	// Give the watcher a moment to register before touching the file.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("provider: anthropic\napi_key: sk-v2\nimage_dir: designs\n"), 0o644))

	select {
	case cfg := <-reloads:
		require.Equal(t, "sk-v2", cfg.APIKey)
	case <-time.After(5 * time.Second):
		t.Fatal("reload not observed")
	}

	last, ok := loader.Last()
	require.True(t, ok)
	require.Equal(t, "sk-v2", last.APIKey)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcherFailsWithoutLoadableConfig(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	dir := filepath.Join(root, ".architect")
	writeConfig(t, dir, "config.yaml", "provider: nonsense\n")

	loader, err := NewLoader(root, WithConfigDir(dir))
	require.NoError(t, err)

	watcher := NewWatcher(loader, nil)
	require.Error(t, watcher.Watch(context.Background()))
}
