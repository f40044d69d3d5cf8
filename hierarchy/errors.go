// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hierarchy provides the nominal class-hierarchy snapshot the
// analyzer runs against.
//
// The hierarchy package contains types for representing classes as a
// directed acyclic graph where nodes are class declarations and edges are
// the declared direct-base relationships. It exposes the subclass partial
// order (`IsSubclass`) that the resolver and disjointness oracle query.
//
// # Ownership Model
//
// Class declarations are immutable once added:
//   - A *Class MUST NOT be mutated after being passed to AddClass()
//   - Amendments (SetMarkedSolid, AmendBases) replace the stored
//     declaration with a fresh copy; callers never observe partial updates
//
// # Thread Safety
//
// Hierarchy is NOT safe for concurrent use during building. It is designed
// for:
//   - Single-writer access during the build phase (AddClass calls)
//   - Concurrent read access after Freeze() succeeds
//
// Post-freeze amendments take the write lock and return the set of class
// keys whose cached analysis results must be invalidated.
//
// # Lifecycle
//
// A typical hierarchy lifecycle:
//  1. Create with New()
//  2. Declare classes with AddClass() (forward base references allowed)
//  3. Call Freeze() to verify acyclicity and build the subclass relation
//  4. Query with GetClass(), IsSubclass(), Descendants(), etc.
package hierarchy

import "errors"

// Sentinel errors for hierarchy operations.
var (
	// ErrFrozen is returned when attempting to add classes to a frozen
	// hierarchy. After Freeze(), only the explicit amendment methods may
	// change declarations.
	ErrFrozen = errors.New("hierarchy is frozen and cannot accept new classes")

	// ErrNotFrozen is returned when querying or amending a hierarchy that
	// has not been frozen yet. The subclass relation only exists after a
	// successful Freeze().
	ErrNotFrozen = errors.New("hierarchy is not frozen")

	// ErrClassNotFound is returned when an operation references a class
	// key that was never declared.
	ErrClassNotFound = errors.New("class not found")

	// ErrDuplicateClass is returned when adding a class with a key that
	// already exists in the hierarchy.
	ErrDuplicateClass = errors.New("duplicate class key")

	// ErrInvalidClass is returned when adding a nil class, a class with an
	// empty key, or a class that lists itself as a base.
	ErrInvalidClass = errors.New("invalid class")

	// ErrBaseNotFound is returned by Freeze() when a declared base was
	// never added to the hierarchy.
	ErrBaseNotFound = errors.New("declared base not found")

	// ErrCycleDetected is returned by Freeze() or AmendBases() when the
	// declared bases form a cycle. The analyzer requires an acyclic
	// hierarchy; cycles are a declaration error, not a resolver concern.
	ErrCycleDetected = errors.New("inheritance cycle detected")

	// ErrNoRoot is returned by Freeze() when no class was declared as the
	// universal root.
	ErrNoRoot = errors.New("no universal root declared")

	// ErrMultipleRoots is returned when a second class is declared as the
	// universal root.
	ErrMultipleRoots = errors.New("universal root already declared")

	// ErrUnrootedClass is returned by Freeze() when a class does not reach
	// the universal root through its bases.
	ErrUnrootedClass = errors.New("class does not descend from the universal root")

	// ErrMaxClassesExceeded is returned when the hierarchy has reached its
	// configured maximum class capacity.
	ErrMaxClassesExceeded = errors.New("maximum class count exceeded")
)
