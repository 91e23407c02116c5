// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"
	"time"
)

func TestOverrideRequest_Validate_Success(t *testing.T) {
	req := &OverrideRequest{From: "general", To: "chemistry", Query: "titration plan"}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid override request, got error: %v", err)
	}
}

func TestOverrideRequest_Validate_MissingTo(t *testing.T) {
	req := &OverrideRequest{From: "general"}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing to, got nil")
	}
}

func TestOverrideRequest_Validate_FromOptional(t *testing.T) {
	req := &OverrideRequest{To: "chemistry"}

	if err := req.Validate(); err != nil {
		t.Errorf("expected from to be optional, got error: %v", err)
	}
}

func TestOverrideRequest_ToRecord(t *testing.T) {
	req := &OverrideRequest{From: "general", To: "chemistry", Query: "titration plan"}

	before := time.Now().UTC()
	rec := req.ToRecord()
	after := time.Now().UTC()

	if rec.From != "general" || rec.To != "chemistry" || rec.Query != "titration plan" {
		t.Errorf("record fields not carried: %+v", rec)
	}
	if rec.OccurredAt.Before(before) || rec.OccurredAt.After(after) {
		t.Errorf("expected OccurredAt between %v and %v, got %v", before, after, rec.OccurredAt)
	}
}
