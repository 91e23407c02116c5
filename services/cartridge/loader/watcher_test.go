// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package loader

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/lodestar-ai/lodestar/services/cartridge"
)

func quietWatcherOptions() *WatcherOptions {
	return &WatcherOptions{
		DebounceWindow: 50 * time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// waitForCondition polls until the condition holds or the deadline passes.
func waitForCondition(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCatalogWatcherInitialLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeCatalog(t, dir, "10-alpha.yaml", `
cartridges:
  - id: alpha
    name: Alpha
    priority: 50
`)

	reg := cartridge.NewRegistry()
	w, err := NewCatalogWatcher(dir, reg, quietWatcherOptions())
	if err != nil {
		t.Fatalf("NewCatalogWatcher returned error: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !w.IsWatching() {
		t.Error("watcher should report watching after Start")
	}
	if _, ok := reg.Get("alpha"); !ok {
		t.Error("initial load should publish the catalog to the registry")
	}
}

func TestCatalogWatcherReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeCatalog(t, dir, "10-alpha.yaml", `
cartridges:
  - id: alpha
    name: Alpha
    priority: 50
`)

	reg := cartridge.NewRegistry()
	w, err := NewCatalogWatcher(dir, reg, quietWatcherOptions())
	if err != nil {
		t.Fatalf("NewCatalogWatcher returned error: %v", err)
	}
	defer w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	writeCatalog(t, dir, "20-beta.yaml", `
cartridges:
  - id: beta
    name: Beta
    priority: 60
`)

	waitForCondition(t, 3*time.Second, "beta cartridge to appear", func() bool {
		_, ok := reg.Get("beta")
		return ok
	})
	if _, ok := reg.Get("alpha"); !ok {
		t.Error("reload should keep cartridges from other files")
	}
	if w.Reloads() == 0 {
		t.Error("reload counter should advance after a published snapshot")
	}
}

func TestCatalogWatcherMalformedKeepsPrevious(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeCatalog(t, dir, "10-alpha.yaml", `
cartridges:
  - id: alpha
    name: Alpha
    priority: 50
`)

	reg := cartridge.NewRegistry()
	w, err := NewCatalogWatcher(dir, reg, quietWatcherOptions())
	if err != nil {
		t.Fatalf("NewCatalogWatcher returned error: %v", err)
	}
	defer w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	writeCatalog(t, dir, "10-alpha.yaml", "{{{ not yaml")
	time.Sleep(500 * time.Millisecond)

	if _, ok := reg.Get("alpha"); !ok {
		t.Fatal("failed reload must keep the previous snapshot live")
	}
	if w.Reloads() != 0 {
		t.Errorf("failed reload should not advance the counter, got %d", w.Reloads())
	}

	// The watcher must recover once the file parses again.
	writeCatalog(t, dir, "10-alpha.yaml", `
cartridges:
  - id: alpha
    name: Alpha
    priority: 60
`)
	waitForCondition(t, 3*time.Second, "recovered snapshot", func() bool {
		c, ok := reg.Get("alpha")
		return ok && c.Priority == 60
	})
}

func TestCatalogWatcherStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeCatalog(t, dir, "catalog.yaml", minimalCatalog)

	reg := cartridge.NewRegistry()
	w, err := NewCatalogWatcher(dir, reg, quietWatcherOptions())
	if err != nil {
		t.Fatalf("NewCatalogWatcher returned error: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	w.Stop()
	w.Stop()
	if w.IsWatching() {
		t.Error("watcher should report stopped after Stop")
	}
}

func TestCatalogWatcherStartFailsOnEmptyDir(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := cartridge.NewRegistry()
	w, err := NewCatalogWatcher(t.TempDir(), reg, quietWatcherOptions())
	if err != nil {
		t.Fatalf("NewCatalogWatcher returned error: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when the initial load finds no catalog")
	}
}

func TestNewCatalogWatcherValidation(t *testing.T) {
	if _, err := NewCatalogWatcher("", cartridge.NewRegistry(), nil); err == nil {
		t.Error("empty directory should be rejected")
	}
	if _, err := NewCatalogWatcher(t.TempDir(), nil, nil); err == nil {
		t.Error("nil registry should be rejected")
	}
}
