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
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned when a hierarchy definition file cannot be
// decoded or fails declaration validation.
var ErrInvalidFile = errors.New("invalid hierarchy file")

// classDecl is the YAML shape of a single class declaration.
type classDecl struct {
	Name  string   `yaml:"name"`
	Bases []string `yaml:"bases"`
	Solid bool     `yaml:"solid"`
	Slots []string `yaml:"slots"`
}

// hierarchyFile is the YAML shape of a hierarchy definition.
//
// Example:
//
//	root: object
//	classes:
//	  - name: Solid1
//	    bases: [object]
//	    solid: true
//	  - name: Child
//	    bases: [Solid1]
//	    slots: [x, y]
type hierarchyFile struct {
	Root    string      `yaml:"root"`
	Classes []classDecl `yaml:"classes"`
}

// Load reads a hierarchy definition from a YAML file and returns a frozen
// hierarchy ready for queries.
func Load(path string, opts ...Option) (*Hierarchy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hierarchy file: %w", err)
	}
	defer f.Close()

	h, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Parse decodes a YAML hierarchy definition and returns a frozen hierarchy.
//
// Description:
//
//	Decoding is strict: unknown fields are rejected. The root class is
//	declared implicitly from the top-level `root` key; classes that omit
//	`bases` inherit directly from the root, mirroring how declaration
//	extraction supplies an implicit universal base.
//
// Errors:
//
//	ErrInvalidFile - Malformed YAML, missing root, or a declaration that
//	                 fails AddClass/Freeze validation (wrapped).
func Parse(r io.Reader, opts ...Option) (*Hierarchy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file hierarchyFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if file.Root == "" {
		return nil, fmt.Errorf("%w: missing root", ErrInvalidFile)
	}

	h := New(opts...)
	if err := h.AddClass(&Class{Key: file.Root, Root: true}); err != nil {
		return nil, fmt.Errorf("%w: root %s: %v", ErrInvalidFile, file.Root, err)
	}

	for _, decl := range file.Classes {
		bases := decl.Bases
		if len(bases) == 0 {
			bases = []string{file.Root}
		}
		c := &Class{
			Key:         decl.Name,
			Bases:       bases,
			MarkedSolid: decl.Solid,
			Slots:       decl.Slots,
		}
		if err := h.AddClass(c); err != nil {
			return nil, fmt.Errorf("%w: class %s: %v", ErrInvalidFile, decl.Name, err)
		}
	}

	if err := h.Freeze(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return h, nil
}
