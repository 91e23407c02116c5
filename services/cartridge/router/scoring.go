// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/features"
)

// ScoringConfig carries the routing weights and thresholds.
//
// The values are empirically chosen; treat them as tuning knobs rather than
// derived quantities. Use DefaultScoringConfig for the standard set.
type ScoringConfig struct {
	// KeywordWeight weights the keyword-match component.
	KeywordWeight float64

	// UnitWeight weights the unit-regex component (binary).
	UnitWeight float64

	// ShapeWeight weights the document-shape component (binary).
	ShapeWeight float64

	// FileWeight weights the file-extension component (fractional).
	FileWeight float64

	// PreferenceWeight weights the user-preference component.
	PreferenceWeight float64

	// KeywordBase is granted for any keyword match at all.
	KeywordBase float64

	// KeywordCountScale is granted fully once KeywordCountCeiling query
	// keywords have matched, proportionally below that.
	KeywordCountScale float64

	// KeywordCountCeiling is the match count at which the count component
	// saturates.
	KeywordCountCeiling int

	// KeywordBonus is granted to focused cartridges: at most
	// SmallKeywordSetMax activator keywords with a match ratio of at least
	// HighMatchRatio.
	KeywordBonus float64

	// SmallKeywordSetMax bounds the activator set size eligible for the
	// focus bonus.
	SmallKeywordSetMax int

	// HighMatchRatio is the activator match ratio required for the bonus.
	HighMatchRatio float64

	// PrimaryThreshold is the confidence a match needs to be selected as
	// primary outright. The highest survivor still wins below it, with
	// the weak selection flagged on the routing span.
	PrimaryThreshold float64

	// MatchFloor drops matches at or below this confidence from the
	// result list. Deliberately tolerant so downstream fallback logic can
	// see the long tail.
	MatchFloor float64

	// ProfileOverlayThreshold gates profile-suggested overlays on the
	// final routing confidence.
	ProfileOverlayThreshold float64

	// FallbackID is the primary id used when nothing matches.
	FallbackID string
}

// DefaultScoringConfig returns the standard weights and thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		KeywordWeight:           0.40,
		UnitWeight:              0.20,
		ShapeWeight:             0.20,
		FileWeight:              0.10,
		PreferenceWeight:        0.10,
		KeywordBase:             0.3,
		KeywordCountScale:       0.6,
		KeywordCountCeiling:     5,
		KeywordBonus:            0.3,
		SmallKeywordSetMax:      5,
		HighMatchRatio:          0.6,
		PrimaryThreshold:        0.2,
		MatchFloor:              0.05,
		ProfileOverlayThreshold: 0.7,
		FallbackID:              "general",
	}
}

// keywordSynonyms extends substring matching with a small fixed table of
// equivalences that substring checks cannot catch.
var keywordSynonyms = map[string][]string{
	"drug":       {"pharmaceutical", "medication", "medicine"},
	"code":       {"software", "program"},
	"lawsuit":    {"litigation"},
	"paper":      {"manuscript", "publication"},
	"experiment": {"assay"},
	"finance":    {"fiscal", "monetary"},
}

// keywordsEquivalent reports whether a query keyword and an activator
// keyword match: substring containment in either direction, or a synonym
// table hit in either direction. Both inputs are expected lowercase.
func keywordsEquivalent(query, activator string) bool {
	if strings.Contains(query, activator) || strings.Contains(activator, query) {
		return true
	}
	for _, syn := range keywordSynonyms[query] {
		if syn == activator {
			return true
		}
	}
	for _, syn := range keywordSynonyms[activator] {
		if syn == query {
			return true
		}
	}
	return false
}

// scoreCartridge computes the weighted match between one cartridge and the
// extracted features, scaled by the cartridge priority and clamped to [0,1].
func scoreCartridge(c *cartridge.Cartridge, feat *features.DomainFeatures, preference float64, cfg *ScoringConfig) CartridgeMatch {
	match := CartridgeMatch{CartridgeID: c.ID}

	// Keyword component: base for any hit, count-scaled body, focus bonus
	// for small activator sets with a high hit ratio.
	matchedQuery, matchedActivators := matchKeywords(feat.Keywords, c.Activation.Keywords)
	var keywordScore float64
	if len(matchedQuery) > 0 {
		keywordScore = cfg.KeywordBase
		countFrac := float64(len(matchedQuery)) / float64(cfg.KeywordCountCeiling)
		if countFrac > 1 {
			countFrac = 1
		}
		keywordScore += cfg.KeywordCountScale * countFrac
		if len(c.Activation.Keywords) > 0 && len(c.Activation.Keywords) <= cfg.SmallKeywordSetMax {
			ratio := float64(matchedActivators) / float64(len(c.Activation.Keywords))
			if ratio >= cfg.HighMatchRatio {
				keywordScore += cfg.KeywordBonus
			}
		}
		if keywordScore > 1 {
			keywordScore = 1
		}
		match.Signals.MatchedKeywords = matchedQuery
	}

	// Unit component: binary on any detected unit matching the activation
	// regex.
	var unitScore float64
	if c.Activation.HasUnitPattern() {
		for _, unit := range feat.Units {
			if c.Activation.MatchesUnit(unit) {
				match.Signals.MatchedUnits = append(match.Signals.MatchedUnits, unit)
			}
		}
		if len(match.Signals.MatchedUnits) > 0 {
			unitScore = 1
		}
	}

	// Shape component: binary membership of the detected shape in the
	// cartridge's declared shapes.
	var shapeScore float64
	for _, shape := range c.Activation.DocShapes {
		if features.DocShape(shape) == feat.DocShape && feat.DocShape != features.ShapeUnknown {
			shapeScore = 1
			match.Signals.MatchedShape = string(feat.DocShape)
			break
		}
	}

	// File component: fraction of the detected extensions the cartridge
	// declares.
	var fileScore float64
	if len(feat.FileExtensions) > 0 && len(c.Activation.FileExtensions) > 0 {
		declared := make(map[string]bool, len(c.Activation.FileExtensions))
		for _, ext := range c.Activation.FileExtensions {
			declared[strings.ToLower(ext)] = true
		}
		matched := 0
		for _, ext := range feat.FileExtensions {
			if declared[ext] {
				matched++
				match.Signals.MatchedFiles = append(match.Signals.MatchedFiles, ext)
			}
		}
		fileScore = float64(matched) / float64(len(feat.FileExtensions))
	}

	if preference < 0 {
		preference = 0
	} else if preference > 1 {
		preference = 1
	}

	sum := cfg.KeywordWeight*keywordScore +
		cfg.UnitWeight*unitScore +
		cfg.ShapeWeight*shapeScore +
		cfg.FileWeight*fileScore +
		cfg.PreferenceWeight*preference

	confidence := sum * float64(c.Priority) / 100
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	match.Confidence = confidence
	match.Rationale = buildRationale(&match, preference)
	return match
}

// matchKeywords returns the query keywords that hit any activator, and the
// count of distinct activators hit. Query order is preserved.
func matchKeywords(query []string, activators []string) ([]string, int) {
	if len(query) == 0 || len(activators) == 0 {
		return nil, 0
	}

	var matchedQuery []string
	hitActivators := make(map[string]bool, len(activators))
	for _, q := range query {
		hit := false
		for _, a := range activators {
			a = strings.ToLower(a)
			if keywordsEquivalent(q, a) {
				hitActivators[a] = true
				hit = true
			}
		}
		if hit {
			matchedQuery = append(matchedQuery, q)
		}
	}
	return matchedQuery, len(hitActivators)
}

// buildRationale renders the signal breakdown as a deterministic sentence.
func buildRationale(m *CartridgeMatch, preference float64) string {
	var parts []string
	if len(m.Signals.MatchedKeywords) > 0 {
		parts = append(parts, fmt.Sprintf("keywords [%s]", strings.Join(m.Signals.MatchedKeywords, " ")))
	}
	if len(m.Signals.MatchedUnits) > 0 {
		parts = append(parts, fmt.Sprintf("units [%s]", strings.Join(m.Signals.MatchedUnits, " ")))
	}
	if m.Signals.MatchedShape != "" {
		parts = append(parts, "shape "+m.Signals.MatchedShape)
	}
	if len(m.Signals.MatchedFiles) > 0 {
		parts = append(parts, fmt.Sprintf("files [%s]", strings.Join(m.Signals.MatchedFiles, " ")))
	}
	if preference > 0 {
		parts = append(parts, fmt.Sprintf("preference %.2f", preference))
	}
	if len(parts) == 0 {
		return "no activation signals"
	}
	return strings.Join(parts, "; ")
}

// sortMatches orders matches by confidence descending, ties broken by id so
// identical inputs always produce identical rankings.
func sortMatches(matches []CartridgeMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].CartridgeID < matches[j].CartridgeID
	})
}
