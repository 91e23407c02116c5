// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package loader

import (
	"context"
	"testing"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/features"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
)

func TestDefaultCatalogLoads(t *testing.T) {
	cartridges, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}

	wantIDs := []string{
		"general", "chemistry", "biology", "medicine", "pharmacology",
		"nuclear_engineering", "software_engineering", "data_science",
		"finance", "legal", "cybersecurity", "phd_research", "executive",
		"patent_examiner", "safety_core", "no_procedures", "ethics_review",
		"medical_disclaimer", "dual_use_block",
	}
	if len(cartridges) != len(wantIDs) {
		t.Errorf("catalog has %d cartridges, want %d", len(cartridges), len(wantIDs))
	}

	byID := map[string]cartridge.Cartridge{}
	for _, c := range cartridges {
		byID[c.ID] = c
	}
	for _, id := range wantIDs {
		if _, ok := byID[id]; !ok {
			t.Errorf("catalog is missing cartridge %s", id)
		}
	}

	if byID["general"].Deliverables.Default != "answer" {
		t.Error("general cartridge should default to the answer deliverable")
	}
	chem := byID["chemistry"]
	if !chem.Activation.HasUnitPattern() {
		t.Error("chemistry unit pattern should be compiled after load")
	}
}

func TestDefaultCatalogSafetyCartridges(t *testing.T) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry returned error: %v", err)
	}

	safetyIDs := []string{
		"safety_core", "no_procedures", "ethics_review",
		"medical_disclaimer", "dual_use_block",
	}
	for _, id := range safetyIDs {
		c, ok := reg.Get(id)
		if !ok {
			t.Errorf("safety cartridge %s missing from catalog", id)
			continue
		}
		if !cartridge.IsSafetyCartridge(c.ID) {
			t.Errorf("%s should be designated a safety cartridge", id)
		}
		if c.Priority != 100 {
			t.Errorf("%s priority = %d, want 100", id, c.Priority)
		}
		if !c.OverlayCompatible {
			t.Errorf("%s must be overlay compatible", id)
		}
		if len(c.Activation.Keywords) != 0 {
			t.Errorf("%s should carry no keyword activators", id)
		}
	}
}

// Every id in the mandatory safety table must resolve in the shipped
// catalog, otherwise the router would inject overlays the composer cannot
// find.
func TestDefaultCatalogMandatoryOverlaysResolve(t *testing.T) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry returned error: %v", err)
	}

	domains := []string{
		"chemistry", "biology", "medicine", "pharmacology",
		"cybersecurity", "nuclear_engineering",
	}
	for _, domain := range domains {
		ids := reg.MandatorySafetyOverlays(domain)
		if len(ids) == 0 {
			t.Errorf("domain %s should carry mandatory safety overlays", domain)
		}
		for _, id := range ids {
			if _, ok := reg.Get(id); !ok {
				t.Errorf("mandatory overlay %s for %s missing from catalog", id, domain)
			}
		}
	}
}

func TestDefaultCatalogRouting(t *testing.T) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry returned error: %v", err)
	}
	r := router.NewDomainRouter(reg, features.NewRegexExtractor(), nil)

	t.Run("chemistry request", func(t *testing.T) {
		result := r.Route(context.Background(), "Plan catalyst stability analysis using spectroscopy", nil, nil)
		if result.Primary != "chemistry" {
			t.Fatalf("primary = %s, want chemistry", result.Primary)
		}
		if len(result.SafetyOverlays) == 0 {
			t.Fatal("chemistry routing should inject safety overlays")
		}
		wantSafety := map[string]bool{"safety_core": false, "no_procedures": false}
		for _, id := range result.SafetyOverlays {
			if _, ok := wantSafety[id]; ok {
				wantSafety[id] = true
			}
		}
		for id, seen := range wantSafety {
			if !seen {
				t.Errorf("safety overlays %v should include %s", result.SafetyOverlays, id)
			}
		}
	})

	t.Run("software request", func(t *testing.T) {
		result := r.Route(context.Background(), "Design REST API with microservices architecture", nil, nil)
		if result.Primary != "software_engineering" {
			t.Fatalf("primary = %s, want software_engineering", result.Primary)
		}
		if len(result.SafetyOverlays) != 0 {
			t.Errorf("software routing should carry no mandatory safety overlays, got %v",
				result.SafetyOverlays)
		}
	})

	t.Run("empty request", func(t *testing.T) {
		result := r.Route(context.Background(), "", nil, nil)
		if result.Primary != "general" {
			t.Errorf("primary = %s, want general", result.Primary)
		}
		if result.Confidence != 0 {
			t.Errorf("confidence = %f, want 0", result.Confidence)
		}
		if len(result.Overlays) != 0 {
			t.Errorf("overlays = %v, want none", result.Overlays)
		}
	})
}
