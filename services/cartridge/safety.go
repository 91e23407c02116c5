// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cartridge

import "strings"

// mandatorySafety maps sensitive primary domains to the safety cartridges
// that must always ride along, in application order. Domains absent from
// this table carry no mandatory overlays.
var mandatorySafety = map[string][]string{
	"chemistry":           {"safety_core", "no_procedures"},
	"biology":             {"safety_core", "no_procedures", "dual_use_block"},
	"medicine":            {"safety_core", "medical_disclaimer"},
	"pharmacology":        {"safety_core", "medical_disclaimer", "no_procedures"},
	"cybersecurity":       {"safety_core", "ethics_review"},
	"nuclear_engineering": {"safety_core", "no_procedures", "dual_use_block"},
}

// safetyIDs names cartridges that are safety overlays regardless of their
// id spelling.
var safetyIDs = map[string]bool{
	"no_procedures":      true,
	"ethics_review":      true,
	"medical_disclaimer": true,
	"dual_use_block":     true,
}

// IsSafetyCartridge reports whether the given id designates a safety
// cartridge. Ids containing "safety" qualify, as do the fixed overlay names
// in safetyIDs. Domain ids like "cybersecurity" do not.
func IsSafetyCartridge(id string) bool {
	if safetyIDs[id] {
		return true
	}
	return strings.Contains(strings.ToLower(id), "safety")
}
