// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
)

// OverrideRequest is the request body for POST /v1/profiles/:userId/overrides.
//
// From names the primary the router picked and To the cartridge the user
// corrected to. Query carries an optional excerpt of the routed text; the
// profile layer truncates it before persisting.
type OverrideRequest struct {
	From  string `json:"from" validate:"omitempty,max=128"`
	To    string `json:"to" validate:"required,max=128"`
	Query string `json:"query,omitempty" validate:"maxbytes"`
}

// Validate validates the OverrideRequest fields.
func (r *OverrideRequest) Validate() error {
	return composerValidate.Struct(r)
}

// ToRecord converts the request into a profile override record stamped with
// the current time.
func (r *OverrideRequest) ToRecord() profile.OverrideRecord {
	return profile.OverrideRecord{
		From:       r.From,
		To:         r.To,
		Query:      r.Query,
		OccurredAt: time.Now().UTC(),
	}
}
