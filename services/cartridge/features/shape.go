// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package features

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	rfcWordPattern      = regexp.MustCompile(`(?i)\brfc\b`)
	protocolWordPattern = regexp.MustCompile(`(?i)\bprotocol\b`)
	outlineLinePattern  = regexp.MustCompile(`^\s*(?:\d+[.)]|[A-Za-z][.)])\s`)
)

// detectDocShape classifies the structural form of the text. The rules run
// in fixed priority order and exactly one shape wins: imrad, then rfc, then
// memo, then outline, then narrative as the default. Empty input stays
// unknown so that blank requests carry no structural signal.
func detectDocShape(text string) DocShape {
	if strings.TrimSpace(text) == "" {
		return ShapeUnknown
	}
	lower := strings.ToLower(text)

	if containsAll(lower, "introduction", "method", "result", "discussion") ||
		containsAll(lower, "abstract", "introduction", "conclusion") {
		return ShapeIMRAD
	}

	if containsAll(lower, "specification", "implementation", "security") ||
		rfcWordPattern.MatchString(text) ||
		protocolWordPattern.MatchString(text) {
		return ShapeRFC
	}

	if strings.Contains(lower, "memorandum") || hasMemoHeaders(lower) {
		return ShapeMemo
	}

	if countOutlineLines(text) > 2 {
		return ShapeOutline
	}

	return ShapeNarrative
}

func containsAll(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}

// hasMemoHeaders reports whether the text carries both a "to:" and a
// "from:" header line.
func hasMemoHeaders(lower string) bool {
	var to, from bool
	for _, line := range strings.Split(lower, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "to:"):
			to = true
		case strings.HasPrefix(trimmed, "from:"):
			from = true
		}
		if to && from {
			return true
		}
	}
	return false
}

func countOutlineLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if outlineLinePattern.MatchString(line) {
			count++
		}
	}
	return count
}

// extractSectionHeaders collects markdown headers and ALL-CAPS lines. A
// line qualifies as an ALL-CAPS header when it is at least three characters
// long, contains at least one letter, and no lowercase letters.
func extractSectionHeaders(text string) []string {
	var headers []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			header := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if header != "" {
				headers = append(headers, header)
			}
			continue
		}
		if isAllCapsHeader(trimmed) {
			headers = append(headers, trimmed)
		}
	}
	return headers
}

func isAllCapsHeader(line string) bool {
	if len(line) < 3 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
