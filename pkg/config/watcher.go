package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces editor write bursts into one reload.
const debounce = 100 * time.Millisecond

// Watcher reloads the loader whenever its config file changes on disk.
type Watcher struct {
	loader   *Loader
	onReload func(*Settings, error)
}

// NewWatcher builds a watcher for loader. onReload, when non-nil, observes
// each reload outcome.
func NewWatcher(loader *Loader, onReload func(*Settings, error)) *Watcher {
	return &Watcher{loader: loader, onReload: onReload}
}

// Watch blocks until ctx is done, reloading the configuration on every
// write, create, or rename of the config file.
func (w *Watcher) Watch(ctx context.Context) error {
	cfg, ok := w.loader.Last()
	if !ok {
		loaded, err := w.loader.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	configPath := cfg.SourcePath
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != filepath.Clean(configPath) {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			time.Sleep(debounce)
			reloaded, err := w.loader.Reload()
			if err != nil {
				log.Printf("config: reload failed: %v", err)
			}
			if w.onReload != nil {
				w.onReload(reloaded, err)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("config: watch error: %v", watchErr)
		}
	}
}
