// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	in := NewUserProfile("ada")
	in.DomainScores["chemistry"] = 0.8
	in.CommonOverlays = []string{"phd_research"}
	in.StylePreferences = map[string]string{"chemistry": "terse"}

	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := store.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.DomainScores["chemistry"] != 0.8 {
		t.Errorf("chemistry score = %v, want 0.8", out.DomainScores["chemistry"])
	}
	if len(out.CommonOverlays) != 1 || out.CommonOverlays[0] != "phd_research" {
		t.Errorf("overlays = %v, want [phd_research]", out.CommonOverlays)
	}
	if out.StylePreferences["chemistry"] != "terse" {
		t.Errorf("style preference = %q, want terse", out.StylePreferences["chemistry"])
	}
	if out.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set on Put")
	}

	// Mutating the returned copy must not leak into the store.
	out.DomainScores["chemistry"] = 0
	again, err := store.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("Get after mutation: %v", err)
	}
	if again.DomainScores["chemistry"] != 0.8 {
		t.Errorf("stored score changed to %v after caller mutation", again.DomainScores["chemistry"])
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("Get missing = %v, want ErrProfileNotFound", err)
	}
}

func TestMemoryStorePutValidation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, nil); err == nil {
		t.Error("Put(nil) succeeded, want error")
	}
	if err := store.Put(ctx, &UserProfile{}); err == nil {
		t.Error("Put without user id succeeded, want error")
	}
}

func TestMemoryStoreContextCancellation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Get(ctx, "ada"); err == nil {
		t.Error("Get with cancelled context succeeded, want error")
	}
	if err := store.Put(ctx, NewUserProfile("ada")); err == nil {
		t.Error("Put with cancelled context succeeded, want error")
	}
}

func TestMemoryStoreRecordOverride(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	updated, err := store.RecordOverride(ctx, "ada", OverrideRecord{
		From:  "general",
		To:    "chemistry",
		Query: "catalyst stability question",
	})
	if err != nil {
		t.Fatalf("RecordOverride: %v", err)
	}
	if got := updated.DomainScores["chemistry"]; got != 0.1 {
		t.Errorf("chemistry score = %v, want 0.1", got)
	}
	if got := updated.DomainScores["general"]; got != 0 {
		t.Errorf("general score = %v, want 0 (decay floors at zero)", got)
	}
	if len(updated.Overrides) != 1 {
		t.Fatalf("override history length = %d, want 1", len(updated.Overrides))
	}
	if updated.Overrides[0].OccurredAt.IsZero() {
		t.Error("override timestamp not set")
	}

	// Repeated overrides toward the same domain accumulate and cap at 1.
	for i := 0; i < 20; i++ {
		updated, err = store.RecordOverride(ctx, "ada", OverrideRecord{From: "general", To: "chemistry"})
		if err != nil {
			t.Fatalf("RecordOverride %d: %v", i, err)
		}
	}
	if got := updated.DomainScores["chemistry"]; got != 1 {
		t.Errorf("chemistry score after 21 overrides = %v, want 1", got)
	}
}

func TestMemoryStoreOverrideHistoryBounds(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	longQuery := strings.Repeat("q", maxOverrideQueryLen+50)
	var updated *UserProfile
	var err error
	for i := 0; i < maxOverrideHistory+10; i++ {
		updated, err = store.RecordOverride(ctx, "ada", OverrideRecord{
			From:  "general",
			To:    "finance",
			Query: longQuery,
		})
		if err != nil {
			t.Fatalf("RecordOverride %d: %v", i, err)
		}
	}
	if len(updated.Overrides) != maxOverrideHistory {
		t.Errorf("history length = %d, want %d", len(updated.Overrides), maxOverrideHistory)
	}
	if got := len(updated.Overrides[0].Query); got != maxOverrideQueryLen {
		t.Errorf("stored query length = %d, want %d", got, maxOverrideQueryLen)
	}
}

func TestUserProfileNormalize(t *testing.T) {
	p := NewUserProfile("ada")
	p.DomainScores["chemistry"] = 1.7
	p.DomainScores["legal"] = -0.3
	p.DomainScores["finance"] = 0.5
	p.CommonOverlays = []string{"executive", "", "executive", " phd_research "}

	p.Normalize()

	if p.DomainScores["chemistry"] != 1 {
		t.Errorf("chemistry = %v, want 1", p.DomainScores["chemistry"])
	}
	if p.DomainScores["legal"] != 0 {
		t.Errorf("legal = %v, want 0", p.DomainScores["legal"])
	}
	if p.DomainScores["finance"] != 0.5 {
		t.Errorf("finance = %v, want 0.5", p.DomainScores["finance"])
	}
	want := []string{"executive", "phd_research"}
	if len(p.CommonOverlays) != len(want) {
		t.Fatalf("overlays = %v, want %v", p.CommonOverlays, want)
	}
	for i, id := range want {
		if p.CommonOverlays[i] != id {
			t.Errorf("overlay[%d] = %q, want %q", i, p.CommonOverlays[i], id)
		}
	}
}

func TestApplyOverrideSameDomain(t *testing.T) {
	p := NewUserProfile("ada")
	p.ApplyOverride(OverrideRecord{From: "chemistry", To: "chemistry"})

	if got := p.DomainScores["chemistry"]; got != 0.1 {
		t.Errorf("score = %v, want 0.1 (no self-decay)", got)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := OpenBadgerStore(InMemoryConfig())
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Get(ctx, "ada"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("Get missing = %v, want ErrProfileNotFound", err)
	}

	in := NewUserProfile("ada")
	in.DomainScores["software_engineering"] = 0.9
	in.PreferredDeliverables = map[string]string{"software_engineering": "design_doc"}
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := store.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.DomainScores["software_engineering"] != 0.9 {
		t.Errorf("score = %v, want 0.9", out.DomainScores["software_engineering"])
	}
	if out.PreferredDeliverables["software_engineering"] != "design_doc" {
		t.Errorf("deliverable = %q, want design_doc", out.PreferredDeliverables["software_engineering"])
	}

	updated, err := store.RecordOverride(ctx, "ada", OverrideRecord{From: "general", To: "software_engineering"})
	if err != nil {
		t.Fatalf("RecordOverride: %v", err)
	}
	if updated.DomainScores["software_engineering"] != 1 {
		t.Errorf("boosted score = %v, want 1 (0.9 + 0.1)", updated.DomainScores["software_engineering"])
	}
}

func TestBadgerStorePersistence(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.GCInterval = 0

	store, err := OpenBadgerStore(cfg)
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	ctx := context.Background()

	in := NewUserProfile("grace")
	in.DomainScores["legal"] = 0.6
	in.UpdatedAt = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Second Close must be a no-op.
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	reopened, err := OpenBadgerStore(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	out, err := reopened.Get(ctx, "grace")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if out.DomainScores["legal"] != 0.6 {
		t.Errorf("score = %v, want 0.6", out.DomainScores["legal"])
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", out.UpdatedAt, in.UpdatedAt)
	}
}

func TestOpenBadgerStoreRequiresPath(t *testing.T) {
	if _, err := OpenBadgerStore(Config{}); err == nil {
		t.Fatal("OpenBadgerStore without path succeeded, want error")
	}
}
