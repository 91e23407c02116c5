// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package features

import (
	"context"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Extractor turns raw request input into DomainFeatures.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Extractor interface {
	// ExtractFromText derives features from free-form text.
	//
	// Description:
	//   Runs keyword, entity, unit, document-shape, section-header, and
	//   citation extraction over the text. Never fails; empty input yields
	//   an empty-but-valid record with DocShape unknown.
	//
	// Inputs:
	//   ctx - Context for tracing. Must not be nil.
	//   text - The raw request text. May be empty.
	//
	// Outputs:
	//   DomainFeatures - The extracted signal record.
	//
	// Thread Safety: This method is safe for concurrent use.
	ExtractFromText(ctx context.Context, text string) DomainFeatures

	// ExtractFromFiles derives the file-owned feature fields from attached
	// file names and metadata. Pure and order-independent with respect to
	// ExtractFromText; the caller merges the two records via Merge.
	ExtractFromFiles(files []FileInput) DomainFeatures
}

// RegexExtractor implements Extractor with precompiled pattern tables.
//
// Thread Safety: This type is safe for concurrent use.
type RegexExtractor struct{}

var _ Extractor = (*RegexExtractor)(nil)

// NewRegexExtractor returns an extractor backed by the package pattern
// tables. All patterns are compiled at package load.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// ExtractFromText derives keywords, entities, units, document shape, section
// headers, and citation tags from the text.
func (e *RegexExtractor) ExtractFromText(ctx context.Context, text string) DomainFeatures {
	if ctx == nil {
		ctx = context.Background()
	}

	_, span := otel.Tracer("features").Start(ctx, "features.RegexExtractor.ExtractFromText",
		trace.WithAttributes(
			attribute.Int("text_length", len(text)),
		),
	)
	defer span.End()

	out := DomainFeatures{
		Keywords:         extractKeywords(text),
		Entities:         extractEntities(text),
		Units:            extractUnits(text),
		DocShape:         detectDocShape(text),
		SectionHeaders:   extractSectionHeaders(text),
		CitationPatterns: extractCitationTags(text),
	}

	span.SetAttributes(
		attribute.Int("keyword_count", len(out.Keywords)),
		attribute.Int("entity_count", len(out.Entities)),
		attribute.Int("unit_count", len(out.Units)),
		attribute.String("doc_shape", string(out.DocShape)),
	)
	return out
}

// ExtractFromFiles collects lowercase file extensions and the per-file
// metadata map. Content is never read.
func (e *RegexExtractor) ExtractFromFiles(files []FileInput) DomainFeatures {
	out := DomainFeatures{DocShape: ShapeUnknown}
	if len(files) == 0 {
		return out
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != "" && !seen[ext] {
			seen[ext] = true
			out.FileExtensions = append(out.FileExtensions, ext)
		}
		if len(f.Metadata) > 0 {
			if out.FileMetadata == nil {
				out.FileMetadata = make(map[string]map[string]string, len(files))
			}
			meta := make(map[string]string, len(f.Metadata))
			for k, v := range f.Metadata {
				meta[k] = v
			}
			out.FileMetadata[f.Name] = meta
		}
	}
	return out
}

// extractKeywords lowercases and whitespace-tokenizes the text, trims edge
// punctuation, drops tokens of three characters or fewer and stop words,
// and deduplicates in first-seen order.
func extractKeywords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(fields))
	var out []string
	for _, tok := range fields {
		tok = strings.Trim(tok, edgePunctuation)
		if len(tok) <= 3 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// extractEntities runs every entity family over the text. Families are
// independent, so one span can appear under several labels. Matches are
// deduplicated per family.
func extractEntities(text string) []Entity {
	if text == "" {
		return nil
	}

	var out []Entity
	for _, rule := range entityRules {
		matches := rule.pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]bool, len(matches))
		for _, m := range matches {
			key := strings.ToLower(m)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Entity{
				Text:       m,
				Label:      rule.label,
				Confidence: entityConfidence,
			})
		}
	}
	return out
}

// extractUnits collects measurement tokens across all unit families,
// deduplicated on the matched span.
func extractUnits(text string) []string {
	if text == "" {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	for _, rule := range unitRules {
		for _, m := range rule.pattern.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// extractCitationTags reports which citation styles are present.
func extractCitationTags(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	for _, rule := range citationRules {
		if rule.pattern.MatchString(text) {
			out = append(out, rule.tag)
		}
	}
	return out
}
