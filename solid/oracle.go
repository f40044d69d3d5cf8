// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package solid

import "github.com/AleutianAI/solidbase/hierarchy"

// DefaultFixedLayoutBuiltins returns the default set of builtin classes
// whose runtime layout is fixed. The set models the primitive types of the
// checked language's runtime; hosts targeting a different runtime supply
// their own set via config.
func DefaultFixedLayoutBuiltins() []string {
	return []string{
		"int", "float", "complex", "bool",
		"str", "bytes", "bytearray",
		"tuple", "list", "dict", "set", "frozenset",
		"range", "memoryview",
	}
}

// Oracle decides whether a class is intrinsically a solid base.
//
// Description:
//
//	A pure function of the class's own declared attributes, with no
//	recursion and no failure mode. A class is intrinsically solid iff it
//	is explicitly marked solid, declares a non-empty per-instance slot
//	layout, is the universal root, or belongs to the configured set of
//	fixed-layout builtin classes.
//
// Thread Safety:
//
//	Stateless after construction; safe for concurrent use.
type Oracle struct {
	builtins map[string]struct{}
}

// NewOracle creates an oracle with the given fixed-layout builtin set.
// Pass DefaultFixedLayoutBuiltins() unless the host overrides the set.
func NewOracle(fixedLayoutBuiltins []string) *Oracle {
	builtins := make(map[string]struct{}, len(fixedLayoutBuiltins))
	for _, key := range fixedLayoutBuiltins {
		builtins[key] = struct{}{}
	}
	return &Oracle{builtins: builtins}
}

// IsIntrinsicallySolid reports whether the class is a solid base by virtue
// of its own declaration, independent of its ancestry.
func (o *Oracle) IsIntrinsicallySolid(c *hierarchy.Class) bool {
	if c == nil {
		return false
	}
	if c.MarkedSolid || c.HasSlots() || c.Root {
		return true
	}
	return o.IsFixedLayoutBuiltin(c.Key)
}

// IsFixedLayoutBuiltin reports whether the key belongs to the configured
// fixed-layout builtin set.
func (o *Oracle) IsFixedLayoutBuiltin(key string) bool {
	_, ok := o.builtins[key]
	return ok
}
