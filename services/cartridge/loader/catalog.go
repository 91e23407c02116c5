// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package loader

import (
	"fmt"

	_ "embed"

	"github.com/lodestar-ai/lodestar/services/cartridge"
)

// defaultCatalog holds the raw bytes of the shipped catalog, baked into the
// binary at compile time so a deployment works without any catalog files on
// disk.
//
//go:embed catalog.yaml
var defaultCatalog []byte

// Default parses the embedded catalog into a fresh cartridge set.
func Default() ([]cartridge.Cartridge, error) {
	cartridges, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return cartridges, nil
}

// NewDefaultRegistry builds a registry from the embedded catalog.
func NewDefaultRegistry() (*cartridge.Registry, error) {
	cartridges, err := Default()
	if err != nil {
		return nil, err
	}
	return cartridge.NewRegistryWith(cartridges), nil
}
