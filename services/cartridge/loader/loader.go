// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package loader turns declarative catalog documents into validated,
// activation-compiled cartridge sets.
//
// A catalog document is a YAML file with a top-level "cartridges" list. The
// loader validates every entry, compiles its activation pattern, and rejects
// duplicate ids, so a registry snapshot built from a loaded set is always
// internally consistent. The shipped default catalog is embedded in the
// binary and loaded the same way.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lodestar-ai/lodestar/services/cartridge"
)

// catalogFile is the on-disk shape of one catalog document.
type catalogFile struct {
	Cartridges []cartridge.Cartridge `yaml:"cartridges"`
}

// Parse decodes one catalog document. Every cartridge is validated and its
// activation pattern compiled; a duplicate id inside the document fails the
// whole parse.
func Parse(data []byte) ([]cartridge.Cartridge, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the catalog document: %w", err)
	}
	if len(file.Cartridges) == 0 {
		return nil, fmt.Errorf("catalog document defines no cartridges")
	}

	seen := make(map[string]bool, len(file.Cartridges))
	for i := range file.Cartridges {
		c := &file.Cartridges[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if err := c.CompileActivation(); err != nil {
			return nil, err
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: %s", cartridge.ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
	}
	return file.Cartridges, nil
}

// LoadFile parses a single catalog file.
func LoadFile(path string) ([]cartridge.Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the catalog file %s: %w", path, err)
	}
	cartridges, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return cartridges, nil
}

// LoadDir parses every .yaml/.yml file in the directory (non-recursive) into
// one combined set. Files are read in lexical order so the combined set is
// deterministic, and an id defined in two files fails the whole load.
func LoadDir(dir string) ([]cartridge.Cartridge, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read the catalog directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("catalog directory %s contains no catalog files", dir)
	}
	sort.Strings(names)

	var combined []cartridge.Cartridge
	seen := map[string]bool{}
	for _, name := range names {
		cartridges, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for _, c := range cartridges {
			if seen[c.ID] {
				return nil, fmt.Errorf("catalog file %s: %w: %s",
					filepath.Join(dir, name), cartridge.ErrDuplicateID, c.ID)
			}
			seen[c.ID] = true
			combined = append(combined, c)
		}
	}
	return combined, nil
}

// NewRegistry loads a catalog directory into a fresh registry.
func NewRegistry(dir string) (*cartridge.Registry, error) {
	cartridges, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return cartridge.NewRegistryWith(cartridges), nil
}
