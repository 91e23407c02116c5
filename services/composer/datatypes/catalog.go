// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"github.com/lodestar-ai/lodestar/services/cartridge"
)

// CartridgeSummary is the list-view projection of a catalog cartridge.
// GET /v1/cartridges returns summaries; GET /v1/cartridges/:id returns the
// full record.
type CartridgeSummary struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Priority           int      `json:"priority"`
	Keywords           []string `json:"keywords,omitempty"`
	OverlayCompatible  bool     `json:"overlay_compatible"`
	Safety             bool     `json:"safety"`
	DefaultDeliverable string   `json:"default_deliverable,omitempty"`
}

// NewCartridgeSummary projects a cartridge into its list view.
func NewCartridgeSummary(c cartridge.Cartridge) CartridgeSummary {
	return CartridgeSummary{
		ID:                 c.ID,
		Name:               c.Name,
		Priority:           c.Priority,
		Keywords:           c.Activation.Keywords,
		OverlayCompatible:  c.OverlayCompatible,
		Safety:             cartridge.IsSafetyCartridge(c.ID),
		DefaultDeliverable: c.Deliverables.Default,
	}
}

// CatalogResponse is the response body for GET /v1/cartridges.
type CatalogResponse struct {
	Count      int                `json:"count"`
	Cartridges []CartridgeSummary `json:"cartridges"`
}
