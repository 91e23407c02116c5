// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"strings"

	"github.com/lodestar-ai/lodestar/services/cartridge/features"
)

// overlayRule pairs an overlay cartridge id with its detection predicate.
// Rules are evaluated in order and every rule that fires contributes its
// overlay; they are not mutually exclusive.
type overlayRule struct {
	id      string
	matches func(feat *features.DomainFeatures) bool
}

// codeFileExtensions marks source-code extensions for the engineering
// overlay.
var codeFileExtensions = map[string]bool{
	".go":    true,
	".py":    true,
	".js":    true,
	".ts":    true,
	".tsx":   true,
	".jsx":   true,
	".java":  true,
	".rs":    true,
	".c":     true,
	".h":     true,
	".cpp":   true,
	".cc":    true,
	".rb":    true,
	".kt":    true,
	".swift": true,
	".cs":    true,
	".scala": true,
	".sh":    true,
}

// overlayRules is the fixed detection table. Overlay detection is
// independent of primary scoring: a request routed to chemistry can still
// carry the executive overlay when budget language is present.
var overlayRules = []overlayRule{
	{
		id: "phd_research",
		matches: func(feat *features.DomainFeatures) bool {
			if feat.DocShape == features.ShapeIMRAD {
				return true
			}
			if len(feat.CitationPatterns) >= 2 {
				return true
			}
			return hasKeywordStem(feat, "thesis", "dissertation", "hypothes", "methodolog", "literature")
		},
	},
	{
		id: "executive",
		matches: func(feat *features.DomainFeatures) bool {
			if len(feat.EntitiesByLabel("finance")) > 0 {
				return true
			}
			return hasKeywordStem(feat, "budget", "strateg", "revenue", "stakeholder", "quarterly", "roadmap")
		},
	},
	{
		id: "patent_examiner",
		matches: func(feat *features.DomainFeatures) bool {
			for _, text := range feat.EntitiesByLabel("legal") {
				lower := strings.ToLower(text)
				if strings.Contains(lower, "patent") || strings.Contains(lower, "prior art") {
					return true
				}
			}
			return hasKeywordStem(feat, "patent", "claim", "novelty", "infringe")
		},
	},
	{
		id: "software_engineering",
		matches: func(feat *features.DomainFeatures) bool {
			if len(feat.EntitiesByLabel("software")) > 0 {
				return true
			}
			for _, ext := range feat.FileExtensions {
				if codeFileExtensions[ext] {
					return true
				}
			}
			return false
		},
	},
}

// detectOverlays runs every overlay rule against the features and returns
// the ids that fired, in table order, deduplicated.
func detectOverlays(feat *features.DomainFeatures) []string {
	var overlays []string
	seen := make(map[string]bool, len(overlayRules))
	for _, rule := range overlayRules {
		if seen[rule.id] {
			continue
		}
		if rule.matches(feat) {
			seen[rule.id] = true
			overlays = append(overlays, rule.id)
		}
	}
	return overlays
}

// hasKeywordStem reports whether any extracted keyword contains one of the
// target stems. Stems only match inside the keyword, never the reverse, so
// short extracted words cannot trip long targets ("aims" must not fire a
// "claims" rule).
func hasKeywordStem(feat *features.DomainFeatures, stems ...string) bool {
	for _, kw := range feat.Keywords {
		for _, stem := range stems {
			if strings.Contains(kw, stem) {
				return true
			}
		}
	}
	return false
}
