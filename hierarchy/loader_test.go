// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `
root: object
classes:
  - name: Solid1
    bases: [object]
    solid: true
  - name: Child
    bases: [Solid1]
    slots: [x, y]
  - name: Plain
`
	h, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}

	if !h.IsFrozen() {
		t.Error("Parse() returned an unfrozen hierarchy")
	}
	if h.Root() != "object" {
		t.Errorf("Root() = %q, expected object", h.Root())
	}
	if h.Len() != 4 {
		t.Errorf("Len() = %d, expected 4 (root + 3 classes)", h.Len())
	}

	solid1, ok := h.GetClass("Solid1")
	if !ok || !solid1.MarkedSolid {
		t.Error("Solid1 lost its solid marking")
	}
	child, ok := h.GetClass("Child")
	if !ok || !child.HasSlots() {
		t.Error("Child lost its slot layout")
	}

	// A class that omits bases inherits directly from the root.
	if bases := h.DirectBases("Plain"); len(bases) != 1 || bases[0] != "object" {
		t.Errorf("DirectBases(Plain) = %v, expected implicit [object]", bases)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed yaml", "root: [unclosed"},
		{"missing root", "classes:\n  - name: A\n"},
		{"unknown field", "root: object\nclases:\n  - name: A\n"},
		{"duplicate class", "root: object\nclasses:\n  - name: A\n  - name: A\n"},
		{"unknown base", "root: object\nclasses:\n  - name: A\n    bases: [Ghost]\n"},
		{"cycle", "root: object\nclasses:\n  - name: A\n    bases: [B]\n  - name: B\n    bases: [A]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, ErrInvalidFile) {
				t.Errorf("Parse() = %v, expected ErrInvalidFile", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.yaml")
	content := `
root: object
classes:
  - name: A
    solid: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	h, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, expected 2", h.Len())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	if err == nil {
		t.Fatal("Load() on a missing file returned nil error")
	}
}
