// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cartridge

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRiskLevelMoreRestrictiveThan(t *testing.T) {
	tests := []struct {
		name  string
		level RiskLevel
		other RiskLevel
		want  bool
	}{
		{"low tighter than medium", RiskLow, RiskMedium, true},
		{"low tighter than high", RiskLow, RiskHigh, true},
		{"medium tighter than high", RiskMedium, RiskHigh, true},
		{"high not tighter than low", RiskHigh, RiskLow, false},
		{"equal levels not tighter", RiskMedium, RiskMedium, false},
		{"unknown treated as most restrictive", RiskLevel("weird"), RiskLow, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.level.MoreRestrictiveThan(tc.other); got != tc.want {
				t.Errorf("%q.MoreRestrictiveThan(%q) = %v, want %v", tc.level, tc.other, got, tc.want)
			}
		})
	}
}

func TestRiskLevelUnmarshalYAML(t *testing.T) {
	var policy SafetyPolicy
	if err := yaml.Unmarshal([]byte("max_risk_level: medium"), &policy); err != nil {
		t.Fatalf("unmarshal valid level: %v", err)
	}
	if policy.MaxRiskLevel != RiskMedium {
		t.Errorf("MaxRiskLevel = %q, want %q", policy.MaxRiskLevel, RiskMedium)
	}

	if err := yaml.Unmarshal([]byte("max_risk_level: extreme"), &policy); err == nil {
		t.Error("expected error for unknown risk level, got nil")
	}
}

func TestCartridgeValidate(t *testing.T) {
	valid := Cartridge{
		ID:       "chemistry",
		Name:     "Chemistry",
		Priority: 100,
		Activation: Activation{
			Keywords:            []string{"catalyst", "reaction"},
			UnitPattern:         `(?i)\d+\s?(mol|mM)`,
			ConfidenceThreshold: 0.2,
		},
	}

	tests := []struct {
		name    string
		mutate  func(c *Cartridge)
		wantErr string
	}{
		{"valid cartridge", func(c *Cartridge) {}, ""},
		{"missing id", func(c *Cartridge) { c.ID = "" }, "failed validation"},
		{"missing name", func(c *Cartridge) { c.Name = "" }, "failed validation"},
		{"priority above range", func(c *Cartridge) { c.Priority = 150 }, "failed validation"},
		{"threshold above range", func(c *Cartridge) { c.Activation.ConfidenceThreshold = 1.5 }, "failed validation"},
		{"bad unit pattern", func(c *Cartridge) { c.Activation.UnitPattern = "([" }, "invalid unit pattern"},
		{"self conflict", func(c *Cartridge) { c.ConflictsWith = []string{"chemistry"} }, "conflict with itself"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestCompileActivation(t *testing.T) {
	c := Cartridge{
		ID:   "chemistry",
		Name: "Chemistry",
		Activation: Activation{
			UnitPattern: `(?i)\d+\s?(mol|mM|°C)`,
		},
	}
	if err := c.CompileActivation(); err != nil {
		t.Fatalf("CompileActivation() = %v", err)
	}
	if !c.Activation.HasUnitPattern() {
		t.Fatal("expected compiled unit pattern")
	}
	if !c.Activation.MatchesUnit("50 mM") {
		t.Error("expected 50 mM to match the unit pattern")
	}
	if c.Activation.MatchesUnit("ten miles") {
		t.Error("did not expect a prose phrase to match the unit pattern")
	}

	// No pattern configured means no unit matching at all.
	plain := Cartridge{ID: "general", Name: "General"}
	if err := plain.CompileActivation(); err != nil {
		t.Fatalf("CompileActivation() on empty pattern = %v", err)
	}
	if plain.Activation.MatchesUnit("50 mM") {
		t.Error("cartridge without a pattern must not match units")
	}

	bad := Cartridge{ID: "x", Name: "X", Activation: Activation{UnitPattern: "(["}}
	if err := bad.CompileActivation(); err == nil {
		t.Error("expected compile error for malformed pattern")
	}
}

func TestSortByPriority(t *testing.T) {
	cartridges := []Cartridge{
		{ID: "b", Priority: 80},
		{ID: "a", Priority: 80},
		{ID: "c", Priority: 100},
	}
	SortByPriority(cartridges)

	gotIDs := []string{cartridges[0].ID, cartridges[1].ID, cartridges[2].ID}
	wantIDs := []string{"c", "a", "b"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("order = %v, want %v", gotIDs, wantIDs)
		}
	}
}

func TestIsSafetyCartridge(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"safety_core", true},
		{"lab_safety", true},
		{"no_procedures", true},
		{"ethics_review", true},
		{"medical_disclaimer", true},
		{"dual_use_block", true},
		{"chemistry", false},
		{"cybersecurity", false},
		{"software_engineering", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsSafetyCartridge(tc.id); got != tc.want {
			t.Errorf("IsSafetyCartridge(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
