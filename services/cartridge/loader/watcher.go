// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lodestar-ai/lodestar/services/cartridge"
)

// WatcherOptions configures the catalog watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for further changes before
	// reloading. Default: 250ms.
	DebounceWindow time.Duration

	// Logger receives reload outcomes. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns the production defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 250 * time.Millisecond,
		Logger:         slog.Default(),
	}
}

// CatalogWatcher hot-reloads a catalog directory into a registry.
//
// # Description
//
// Watches one flat directory of catalog files. Changes are debounced, then
// the whole directory is re-parsed and published to the registry as a single
// snapshot swap, so concurrent readers observe either the old or the new
// catalog, never a partial one. A reload that fails to parse is logged and
// dropped; the previous snapshot stays live.
//
// # Thread Safety
//
// Safe for concurrent use. Reloads run on a single goroutine.
type CatalogWatcher struct {
	dir      string
	registry *cartridge.Registry
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration

	dirty    chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool

	reloads atomic.Int64
}

// NewCatalogWatcher creates a watcher over the given catalog directory. Call
// Start to load the initial snapshot and begin watching.
func NewCatalogWatcher(dir string, registry *cartridge.Registry, opts *WatcherOptions) (*CatalogWatcher, error) {
	if dir == "" {
		return nil, errors.New("catalog watcher requires a directory")
	}
	if registry == nil {
		return nil, errors.New("catalog watcher requires a registry")
	}
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.DebounceWindow
	if debounce <= 0 {
		debounce = DefaultWatcherOptions().DebounceWindow
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create the catalog watcher: %w", err)
	}

	return &CatalogWatcher{
		dir:      dir,
		registry: registry,
		logger:   logger,
		watcher:  watcher,
		debounce: debounce,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start loads the catalog once, then begins watching for changes.
//
// The initial load is strict: a directory that does not parse fails Start,
// because booting with no catalog is a configuration error. Later reload
// failures are logged and skipped instead.
func (w *CatalogWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	cartridges, err := LoadDir(w.dir)
	if err != nil {
		w.setWatching(false)
		return err
	}
	w.registry.Replace(cartridges)

	if err := w.watcher.Add(w.dir); err != nil {
		w.setWatching(false)
		return fmt.Errorf("failed to watch the catalog directory %s: %w", w.dir, err)
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("catalog watcher started",
		slog.String("dir", w.dir),
		slog.Int("cartridges", len(cartridges)))
	return nil
}

// Stop stops watching and waits for the reload goroutines to exit. Safe to
// call more than once.
func (w *CatalogWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
		w.wg.Wait()
		w.setWatching(false)
	})
}

// IsWatching reports whether the watcher is active.
func (w *CatalogWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *CatalogWatcher) setWatching(v bool) {
	w.mu.Lock()
	w.watching = v
	w.mu.Unlock()
}

// Reloads returns how many snapshot swaps have been published since Start,
// not counting the initial load.
func (w *CatalogWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// isCatalogFile reports whether the changed path is a catalog document.
func isCatalogFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// processEvents collapses relevant fsnotify events into the dirty signal.
func (w *CatalogWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// Dirty bit, not a queue: one pending signal is enough
			// because the reload re-reads the whole directory.
			select {
			case w.dirty <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", slog.Any("error", err))
		}
	}
}

// debounceLoop waits for the change burst to settle, then reloads.
func (w *CatalogWatcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.dirty:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

// reload re-parses the directory and publishes the new snapshot. A parse
// failure keeps the previous snapshot live.
func (w *CatalogWatcher) reload() {
	cartridges, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Error("catalog reload failed, keeping previous snapshot",
			slog.String("dir", w.dir),
			slog.Any("error", err))
		return
	}
	w.registry.Replace(cartridges)
	w.reloads.Add(1)
	w.logger.Info("catalog reloaded",
		slog.String("dir", w.dir),
		slog.Int("cartridges", len(cartridges)))
}
