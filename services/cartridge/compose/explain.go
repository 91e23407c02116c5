// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"fmt"
	"strings"
)

// Explain renders the composition as a deterministic multi-line summary:
// the source chain, the active policy surface, and every resolved conflict.
// Pure formatting, no side effects.
func (c *CartridgeComposer) Explain(composed *ComposedCartridge) string {
	if composed == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Composed from %d cartridges: %s\n",
		len(composed.SourceCartridges), strings.Join(composed.SourceCartridges, " > "))

	fmt.Fprintf(&b, "Safety: forbid_procedures=%t forbid_harmful=%t redact_pii=%t",
		composed.Safety.ForbidProcedures, composed.Safety.ForbidHarmful, composed.Safety.RedactPII)
	if composed.Safety.MaxRiskLevel != "" {
		fmt.Fprintf(&b, " max_risk_level=%s", composed.Safety.MaxRiskLevel)
	}
	b.WriteByte('\n')

	if len(composed.Safety.TopicBlocks) > 0 {
		fmt.Fprintf(&b, "Blocked topics: %s\n", strings.Join(composed.Safety.TopicBlocks, ", "))
	}
	if len(composed.Safety.RequiredDisclaimers) > 0 {
		fmt.Fprintf(&b, "Disclaimers: %s\n", strings.Join(composed.Safety.RequiredDisclaimers, ", "))
	}

	if !composed.Style.IsZero() {
		var parts []string
		if composed.Style.Tone != "" {
			parts = append(parts, "tone="+composed.Style.Tone)
		}
		if composed.Style.Units != "" {
			parts = append(parts, "units="+composed.Style.Units)
		}
		if composed.Style.CitationStyle != "" {
			parts = append(parts, "citations="+composed.Style.CitationStyle)
		}
		if composed.Style.LengthPreference != "" {
			parts = append(parts, "length="+composed.Style.LengthPreference)
		}
		if composed.Style.Structure != "" {
			parts = append(parts, "structure="+composed.Style.Structure)
		}
		fmt.Fprintf(&b, "Style: %s\n", strings.Join(parts, " "))
	}

	if composed.Deliverables.Default != "" || len(composed.Deliverables.Options) > 0 {
		fmt.Fprintf(&b, "Deliverable: %s", composed.Deliverables.Default)
		if len(composed.Deliverables.Options) > 0 {
			fmt.Fprintf(&b, " (options: %s)", strings.Join(composed.Deliverables.Options, ", "))
		}
		b.WriteByte('\n')
	}

	if len(composed.Rubrics) > 0 {
		fmt.Fprintf(&b, "Rubrics: %s\n", strings.Join(composed.Rubrics, ", "))
	}
	if len(composed.Validators) > 0 {
		fmt.Fprintf(&b, "Validators: %s\n", strings.Join(composed.Validators, ", "))
	}

	if len(composed.ConflictsResolved) == 0 {
		b.WriteString("No conflicts resolved.\n")
		return b.String()
	}
	b.WriteString("Conflicts resolved:\n")
	for _, res := range composed.ConflictsResolved {
		fmt.Fprintf(&b, "  - %s won by %s (%s)\n", res.Property, res.WinnerID, res.Reason)
	}
	return b.String()
}
