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

import "fmt"

// SetMarkedSolid amends the explicit solid marking of a declared class.
//
// Description:
//
//	Installs a fresh declaration copy with the new marking and bumps the
//	amendment generation. The returned key set contains the class and all
//	of its transitive descendants; the host MUST evict the cached
//	resolution results for every returned key before issuing further
//	queries (the resolver does not track dependents itself).
//
// Inputs:
//
//	key - The class to amend.
//	marked - The new explicit-solid marking.
//
// Outputs:
//
//	[]string - The affected keys: the class itself followed by its
//	           transitive descendants in breadth-first order.
//	error - Non-nil if the hierarchy is not frozen or the class is unknown.
//
// Errors:
//
//	ErrNotFrozen - Freeze() has not been called
//	ErrClassNotFound - No class with the given key
//
// Thread Safety:
//
//	Serializes with all queries through the write lock.
func (h *Hierarchy) SetMarkedSolid(key string, marked bool) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateFrozen {
		return nil, ErrNotFrozen
	}
	c, ok := h.classes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, key)
	}

	amended := c.clone()
	amended.MarkedSolid = marked
	h.classes[key] = amended
	h.generation++

	return append([]string{key}, h.descendantsLocked(key)...), nil
}

// AmendBases replaces the declared direct bases of a class.
//
// Description:
//
//	Validates that every new base exists and that the amendment does not
//	introduce a cycle (a new base must not be a descendant of the class),
//	then rebuilds the subclass relation and bumps the amendment
//	generation. As with SetMarkedSolid, the host MUST evict cached
//	resolution results for every returned key.
//
// Inputs:
//
//	key - The class to amend.
//	bases - The new direct bases in declared order.
//
// Outputs:
//
//	[]string - The affected keys: the class itself followed by its
//	           transitive descendants under the amended relation.
//	error - Non-nil if validation fails; the hierarchy is unchanged on error.
//
// Errors:
//
//	ErrNotFrozen - Freeze() has not been called
//	ErrClassNotFound - No class with the given key
//	ErrInvalidClass - The root's bases cannot be amended, or key in bases
//	ErrBaseNotFound - A new base was never declared
//	ErrCycleDetected - A new base is a descendant of the class
func (h *Hierarchy) AmendBases(key string, bases []string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateFrozen {
		return nil, ErrNotFrozen
	}
	c, ok := h.classes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, key)
	}
	if c.Root {
		return nil, fmt.Errorf("%w: cannot amend bases of root %s", ErrInvalidClass, key)
	}

	for _, base := range bases {
		if base == key {
			return nil, fmt.Errorf("%w: %s lists itself as a base", ErrInvalidClass, key)
		}
		if _, ok := h.classes[base]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrBaseNotFound, base)
		}
		if anc, ok := h.ancestors[base]; ok {
			if _, below := anc[key]; below {
				return nil, fmt.Errorf("%w: %s is a descendant of %s", ErrCycleDetected, base, key)
			}
		}
	}

	amended := c.clone()
	amended.Bases = append([]string(nil), bases...)
	h.classes[key] = amended

	if err := h.rebuildRelationLocked(); err != nil {
		// Restore the previous declaration; the cycle pre-check makes this
		// unreachable, but the relation must never be left half-built.
		h.classes[key] = c
		if rerr := h.rebuildRelationLocked(); rerr != nil {
			return nil, fmt.Errorf("restoring after failed amendment: %w", rerr)
		}
		return nil, err
	}
	h.generation++

	return append([]string{key}, h.descendantsLocked(key)...), nil
}
