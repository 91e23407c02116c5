// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package features

import "regexp"

// entityConfidence is the fixed confidence assigned to every regex-derived
// entity. Regex matches carry no graded signal, so all matches weigh the same.
const entityConfidence = 0.8

// stopWords are tokens dropped during keyword extraction. Only words longer
// than three characters matter here; shorter tokens are already filtered by
// the length rule.
var stopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "also": true,
	"among": true, "based": true, "because": true, "been": true, "before": true,
	"being": true, "below": true, "between": true, "both": true, "cannot": true,
	"could": true, "does": true, "doing": true, "down": true, "during": true,
	"each": true, "else": true, "every": true, "from": true, "further": true,
	"give": true, "have": true, "having": true, "help": true, "here": true,
	"into": true, "itself": true, "just": true, "like": true,
	"made": true, "make": true, "many": true, "more": true, "most": true,
	"much": true, "must": true, "need": true, "onto": true, "other": true,
	"over": true, "please": true, "same": true, "shall": true, "should": true,
	"show": true, "some": true, "such": true, "tell": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"under": true, "until": true, "upon": true, "used": true, "using": true,
	"very": true, "want": true, "well": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "will": true,
	"with": true, "would": true, "your": true,
}

// edgePunctuation is trimmed from both ends of each token before the length
// and stop-word checks.
const edgePunctuation = ".,;:!?()[]{}\"'`“”‘’<>|/\\"

// entityRules defines one regex family per entity category. Families are
// checked independently, so one span can surface under several labels.
var entityRules = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{
		label: "chemical",
		pattern: regexp.MustCompile(`(?i:\b(?:catalyst|reagent|solvent|polymer|titration|spectroscopy|chromatography|electrolyte|isotope|monomer|oxidation|hydrolysis)\b)` +
			`|\b(?:[A-Z][a-z]?\d+)+(?:[A-Z][a-z]?\d*)*\b` +
			`|\b\d{2,7}-\d{2}-\d\b`),
	},
	{
		label: "software",
		pattern: regexp.MustCompile(`(?i)\b(?:api|rest|grpc|graphql|http2?|json|yaml|sql|nosql|kubernetes|docker|microservices?|oauth2?|websocket|tcp|udp|tls|sdk|cli|backend|frontend|middleware)\b`),
	},
	{
		label: "medical",
		pattern: regexp.MustCompile(`(?i)\b(?:diagnosis|prognosis|dosage|dosing|patient|clinical trial|pharmacokinetics?|contraindications?|placebo|symptoms?|pathology|biomarker|etiology)\b`),
	},
	{
		label: "legal",
		pattern: regexp.MustCompile(`(?i)\b(?:plaintiff|defendant|statute|statutory|liability|tort|jurisdiction|patent claims?|prior art|infringement|indemnification|covenant|injunction)\b`),
	},
	{
		label: "finance",
		pattern: regexp.MustCompile(`(?i)\b(?:roi|ebitda|revenue|portfolio|equity|derivatives?|liquidity|balance sheet|cash flow|valuation|amortization|hedge)\b` +
			`|[$€£]\s?\d[\d,.]*(?:\s?(?:million|billion|[mbk]))?`),
	},
}

// unitRules is the fixed list of measurement-unit patterns. Families are
// checked independently and each match is collected verbatim.
var unitRules = []struct {
	family  string
	pattern *regexp.Regexp
}{
	{
		family:  "concentration",
		pattern: regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:mol|mmol|µmol|umol|mM|µM|uM|nM|mg/mL|g/L|ppm|ppb|M)\b`),
	},
	{
		family:  "temperature",
		pattern: regexp.MustCompile(`(?i)-?\d+(?:\.\d+)?\s?(?:°\s?[CF]|celsius|fahrenheit|kelvin|\bK\b)`),
	},
	{
		family:  "time",
		pattern: regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:ms|milliseconds?|seconds?|sec|mins?|minutes?|hrs?|hours?|days?|weeks?)\b`),
	},
	{
		family:  "datasize",
		pattern: regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:[KMGTP]i?B|bytes)\b`),
	},
	{
		family:  "frequency",
		pattern: regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:hz|khz|mhz|ghz)\b`),
	},
	{
		family:  "electrical",
		pattern: regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:mV|kV|V|mA|A|kW|MW|W|Ω|ohms?)\b`),
	},
}

// citationRules tags citation styles by presence. Tags are independent; a
// text can carry several.
var citationRules = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{tag: "numeric_bracket", pattern: regexp.MustCompile(`\[\d+\]`)},
	{tag: "author_year", pattern: regexp.MustCompile(`\([A-Z][A-Za-z-]+(?:\s+(?:&|and)\s+[A-Z][A-Za-z-]+)?,?\s+(?:19|20)\d{2}\)`)},
	{tag: "et_al", pattern: regexp.MustCompile(`\bet al\.?`)},
	{tag: "rfc_reference", pattern: regexp.MustCompile(`\[RFC\s?\d+\]`)},
	{tag: "policy_reference", pattern: regexp.MustCompile(`\[[A-Z]{2,10}-\d+\]`)},
}
