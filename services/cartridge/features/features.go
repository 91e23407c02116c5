// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package features turns raw request text and file metadata into the
// DomainFeatures record the router scores against.
//
// Extraction is pure and never fails: malformed or empty input produces an
// empty-but-valid feature record and the ambiguity surfaces downstream as
// low routing confidence.
package features

// DocShape classifies the structural form of a document.
type DocShape string

const (
	// ShapeIMRAD marks academic papers (introduction, methods, results,
	// discussion).
	ShapeIMRAD DocShape = "imrad"

	// ShapeRFC marks specification-style documents.
	ShapeRFC DocShape = "rfc"

	// ShapeMemo marks business memoranda.
	ShapeMemo DocShape = "memo"

	// ShapeOutline marks numbered or lettered outlines.
	ShapeOutline DocShape = "outline"

	// ShapeNarrative is the default for free-flowing prose.
	ShapeNarrative DocShape = "narrative"

	// ShapeUnknown is the zero value, used before extraction and for
	// empty input.
	ShapeUnknown DocShape = "unknown"
)

// Entity is one named-entity match found in the text.
type Entity struct {
	// Text is the matched span.
	Text string `json:"text"`

	// Label is the entity category (chemical, software, medical, legal,
	// finance).
	Label string `json:"label"`

	// Confidence is fixed at extraction time; regex matches all carry the
	// same weight.
	Confidence float64 `json:"confidence"`
}

// FileInput describes one attached file presented to extraction. Only the
// name and caller-supplied metadata matter; content is never read here.
type FileInput struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DomainFeatures is the full signal record for one routing call. It is
// derived, ephemeral state: built fresh per request and never stored.
type DomainFeatures struct {
	// Keywords are lowercase content words longer than three characters,
	// stop words removed, deduplicated in first-seen order.
	Keywords []string `json:"keywords,omitempty"`

	// Entities are category-tagged regex matches. The same span may appear
	// under several categories.
	Entities []Entity `json:"entities,omitempty"`

	// Units are measurement tokens (concentration, temperature, time, data
	// size, frequency, electrical), deduplicated.
	Units []string `json:"units,omitempty"`

	// DocShape is the single structural classification of the text.
	DocShape DocShape `json:"doc_shape,omitempty"`

	// SectionHeaders collects markdown headers and ALL-CAPS lines.
	SectionHeaders []string `json:"section_headers,omitempty"`

	// CitationPatterns tags which citation styles appear in the text.
	CitationPatterns []string `json:"citation_patterns,omitempty"`

	// FileExtensions are lowercase extensions of the attached files.
	FileExtensions []string `json:"file_extensions,omitempty"`

	// FileMetadata maps file names to their caller-supplied metadata.
	FileMetadata map[string]map[string]string `json:"file_metadata,omitempty"`

	// PriorContext carries optional prior-session context verbatim.
	PriorContext string `json:"prior_context,omitempty"`
}

// HasSignals reports whether extraction found anything routable.
func (f *DomainFeatures) HasSignals() bool {
	return len(f.Keywords) > 0 ||
		len(f.Entities) > 0 ||
		len(f.Units) > 0 ||
		len(f.FileExtensions) > 0 ||
		(f.DocShape != ShapeUnknown && f.DocShape != "")
}

// EntitiesByLabel returns the entity texts carrying the given category label.
func (f *DomainFeatures) EntitiesByLabel(label string) []string {
	var out []string
	for _, e := range f.Entities {
		if e.Label == label {
			out = append(out, e.Text)
		}
	}
	return out
}

// HasCitation reports whether the given citation tag was detected.
func (f *DomainFeatures) HasCitation(tag string) bool {
	for _, t := range f.CitationPatterns {
		if t == tag {
			return true
		}
	}
	return false
}

// Merge unions text-derived and file-derived features into one record.
// Fields owned by file extraction (extensions, metadata) win for their own
// keys; every text-derived field passes through untouched. Both inputs stay
// unmodified.
func Merge(text DomainFeatures, files DomainFeatures) DomainFeatures {
	merged := text

	if len(files.FileExtensions) > 0 {
		merged.FileExtensions = append([]string(nil), files.FileExtensions...)
	}
	if len(files.FileMetadata) > 0 {
		merged.FileMetadata = make(map[string]map[string]string, len(files.FileMetadata))
		for name, meta := range files.FileMetadata {
			merged.FileMetadata[name] = meta
		}
	}
	if merged.DocShape == "" {
		merged.DocShape = ShapeUnknown
	}
	return merged
}
