// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package solid computes the unique solid base of every class in a
// hierarchy.
//
// A solid base is a class whose instances have a fixed, non-extensible
// field layout that descendants must preserve. At most one unrelated solid
// base may appear in a class's ancestry; a class whose bases contribute
// mutually incomparable solid bases cannot be instantiated validly and
// resolves to an invalid result.
//
// The package has two halves:
//   - Oracle: a pure per-class lookup deciding intrinsic solidity
//     (explicit marking, non-empty slot layout, universal root, or
//     membership in a fixed-layout builtin set)
//   - Resolver: memoized bottom-up resolution over the hierarchy,
//     producing a Result per class that downstream consumers (validator,
//     disjointness oracle) read
//
// # Thread Safety
//
// The Oracle is stateless after construction. The Resolver is safe for
// concurrent use: the memoization cache uses compute-once-per-key
// semantics, and all callers for a given class observe the same final
// Result.
package solid

import "errors"

// ErrUnknownClass is returned when resolution is requested for a class key
// the hierarchy source does not contain.
var ErrUnknownClass = errors.New("unknown class")
