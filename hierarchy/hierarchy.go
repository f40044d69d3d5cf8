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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultMaxClasses is the default maximum number of classes a hierarchy
// can hold.
const DefaultMaxClasses = 1_000_000

// State represents the lifecycle state of the hierarchy.
type State int

const (
	// StateBuilding indicates the hierarchy is accepting AddClass calls.
	StateBuilding State = iota

	// StateFrozen indicates the hierarchy is verified and queryable.
	StateFrozen
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// Class is a single class declaration.
//
// A Class is immutable once recorded: the declaration extraction pass sets
// every field at declaration time and nothing mutates it afterward within a
// checking session. Amendments go through the Hierarchy, which installs a
// fresh copy.
type Class struct {
	// Key is the stable identity, typically a fully-qualified name.
	Key string

	// Bases are the direct base keys in declared order.
	Bases []string

	// MarkedSolid reports whether the class carries an explicit solid
	// marking in its declaration.
	MarkedSolid bool

	// Slots is the declared per-instance slot layout. A non-empty layout
	// makes the class intrinsically solid.
	Slots []string

	// Root reports whether this is the universal root class.
	Root bool
}

// HasSlots reports whether the class declares a non-empty per-instance
// slot layout.
func (c *Class) HasSlots() bool {
	return len(c.Slots) > 0
}

// clone returns a copy of the class with independent slices.
func (c *Class) clone() *Class {
	dup := &Class{
		Key:         c.Key,
		Bases:       make([]string, len(c.Bases)),
		MarkedSolid: c.MarkedSolid,
		Slots:       make([]string, len(c.Slots)),
		Root:        c.Root,
	}
	copy(dup.Bases, c.Bases)
	copy(dup.Slots, c.Slots)
	return dup
}

// Options configures Hierarchy behavior and limits.
type Options struct {
	// MaxClasses is the maximum number of classes the hierarchy can hold.
	// Default: 1,000,000
	MaxClasses int
}

// DefaultOptions returns sensible defaults for hierarchy configuration.
func DefaultOptions() Options {
	return Options{MaxClasses: DefaultMaxClasses}
}

// Option is a functional option for configuring Hierarchy.
type Option func(*Options)

// WithMaxClasses sets the maximum number of classes the hierarchy can hold.
func WithMaxClasses(n int) Option {
	return func(o *Options) {
		o.MaxClasses = n
	}
}

// Hierarchy is an append-only snapshot of class declarations together with
// the subclass partial order derived from them.
//
// Description:
//
//	Classes are added during the build phase (forward base references are
//	allowed), then Freeze() verifies that every base exists, that the
//	declarations are acyclic, and that every class reaches the universal
//	root. Freeze() also precomputes the ancestor set of every class so
//	that IsSubclass answers in O(1).
//
// Thread Safety:
//
//	Build phase is single-writer. After Freeze(), all queries are safe for
//	concurrent use; amendments serialize through the write lock.
type Hierarchy struct {
	mu sync.RWMutex

	// classes maps class key to its declaration.
	classes map[string]*Class

	// order holds class keys in insertion order for deterministic
	// iteration.
	order []string

	// rootKey is the key of the universal root, empty until declared.
	rootKey string

	// ancestors maps class key to its ancestor-or-self key set.
	// Computed on Freeze(), recomputed on amendment.
	ancestors map[string]map[string]struct{}

	// children maps class key to its direct subclass keys in insertion
	// order. Derived index for Descendants().
	children map[string][]string

	// generation increments on every amendment so hosts can detect stale
	// derived state.
	generation uint64

	state   State
	options Options
}

// New creates a new empty hierarchy in the Building state.
func New(opts ...Option) *Hierarchy {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Hierarchy{
		classes:   make(map[string]*Class),
		ancestors: make(map[string]map[string]struct{}),
		children:  make(map[string][]string),
		state:     StateBuilding,
		options:   options,
	}
}

// State returns the current lifecycle state of the hierarchy.
func (h *Hierarchy) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// IsFrozen returns true if the hierarchy has been frozen.
func (h *Hierarchy) IsFrozen() bool {
	return h.State() == StateFrozen
}

// Len returns the number of declared classes.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.classes)
}

// Root returns the key of the universal root, or "" if none was declared.
func (h *Hierarchy) Root() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootKey
}

// Generation returns the amendment generation. It starts at zero and
// increments on every successful SetMarkedSolid or AmendBases call.
func (h *Hierarchy) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generation
}

// AddClass records a class declaration.
//
// Description:
//
//	Adds the declaration to the hierarchy. Bases may reference classes
//	that have not been added yet; existence is verified by Freeze().
//	The hierarchy stores its own copy, so the caller keeps ownership of
//	the passed Class.
//
// Errors:
//
//	ErrFrozen - Hierarchy has been frozen
//	ErrInvalidClass - Class is nil, has an empty key, or lists itself as a base
//	ErrDuplicateClass - Class with the same key already exists
//	ErrMultipleRoots - A universal root was already declared
//	ErrMaxClassesExceeded - Hierarchy is at class capacity
func (h *Hierarchy) AddClass(c *Class) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateFrozen {
		return ErrFrozen
	}
	if c == nil {
		return fmt.Errorf("%w: class is nil", ErrInvalidClass)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidClass)
	}
	for _, base := range c.Bases {
		if base == c.Key {
			return fmt.Errorf("%w: %s lists itself as a base", ErrInvalidClass, c.Key)
		}
	}
	if c.Root {
		if h.rootKey != "" {
			return fmt.Errorf("%w: %s (root is %s)", ErrMultipleRoots, c.Key, h.rootKey)
		}
		if len(c.Bases) > 0 {
			return fmt.Errorf("%w: root %s must not declare bases", ErrInvalidClass, c.Key)
		}
	}
	if len(h.classes) >= h.options.MaxClasses {
		return ErrMaxClassesExceeded
	}
	if _, exists := h.classes[c.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClass, c.Key)
	}

	h.classes[c.Key] = c.clone()
	h.order = append(h.order, c.Key)
	if c.Root {
		h.rootKey = c.Key
	}
	return nil
}

// GetClass retrieves a class declaration by key.
//
// Outputs:
//
//	*Class - The declaration if found, nil otherwise. Callers MUST NOT
//	         mutate the returned class.
//	bool - True if the class was found.
func (h *Hierarchy) GetClass(key string) (*Class, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.classes[key]
	return c, ok
}

// DirectBases returns the declared direct bases of a class in declaration
// order. Returns an empty slice for unknown keys.
func (h *Hierarchy) DirectBases(key string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.classes[key]
	if !ok {
		return []string{}
	}
	bases := make([]string, len(c.Bases))
	copy(bases, c.Bases)
	return bases
}

// Keys returns all class keys in insertion order.
func (h *Hierarchy) Keys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, len(h.order))
	copy(keys, h.order)
	return keys
}

// Freeze verifies the declarations and builds the subclass relation.
//
// Description:
//
//	Checks that every declared base exists, that the base edges are
//	acyclic (Kahn topological sort), and that every non-root class
//	reaches the universal root. On success the hierarchy transitions to
//	StateFrozen, the ancestor sets backing IsSubclass are populated, and
//	the hierarchy becomes safe for concurrent reads.
//
// Errors:
//
//	ErrFrozen - Freeze() was already called
//	ErrNoRoot - No class was declared as the universal root
//	ErrBaseNotFound - A declared base was never added
//	ErrCycleDetected - The base edges form a cycle
//	ErrUnrootedClass - A class does not descend from the root
func (h *Hierarchy) Freeze() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateFrozen {
		return ErrFrozen
	}
	if h.rootKey == "" {
		return ErrNoRoot
	}

	for _, key := range h.order {
		for _, base := range h.classes[key].Bases {
			if _, ok := h.classes[base]; !ok {
				return fmt.Errorf("%w: %s (base of %s)", ErrBaseNotFound, base, key)
			}
		}
	}

	if err := h.rebuildRelationLocked(); err != nil {
		return err
	}

	h.state = StateFrozen
	return nil
}

// rebuildRelationLocked recomputes children and ancestor sets from the
// current declarations. Caller must hold the write lock and have verified
// base existence.
func (h *Hierarchy) rebuildRelationLocked() error {
	children := make(map[string][]string, len(h.classes))
	indegree := make(map[string]int, len(h.classes))

	for _, key := range h.order {
		indegree[key] = len(h.classes[key].Bases)
		for _, base := range h.classes[key].Bases {
			children[base] = append(children[base], key)
		}
	}

	// Kahn toposort, bases before dependents.
	queue := make([]string, 0, len(h.classes))
	for _, key := range h.order {
		if indegree[key] == 0 {
			queue = append(queue, key)
		}
	}

	ancestors := make(map[string]map[string]struct{}, len(h.classes))
	processed := 0
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		processed++

		anc := map[string]struct{}{key: {}}
		for _, base := range h.classes[key].Bases {
			for a := range ancestors[base] {
				anc[a] = struct{}{}
			}
		}
		ancestors[key] = anc

		for _, child := range children[key] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if processed != len(h.classes) {
		remaining := make([]string, 0)
		for _, key := range h.order {
			if indegree[key] > 0 {
				remaining = append(remaining, key)
			}
		}
		return fmt.Errorf("%w: involving %s", ErrCycleDetected, strings.Join(remaining, ", "))
	}

	for _, key := range h.order {
		if key == h.rootKey {
			continue
		}
		if _, ok := ancestors[key][h.rootKey]; !ok {
			return fmt.Errorf("%w: %s", ErrUnrootedClass, key)
		}
	}

	h.children = children
	h.ancestors = ancestors
	return nil
}

// IsSubclass reports whether sub is a descendant-or-self of super.
//
// Description:
//
//	The relation is reflexive and transitive, consistent with the
//	declared base edges. Unknown keys and unfrozen hierarchies report
//	false.
//
// Complexity:
//
//	O(1) set lookup against the precomputed ancestor sets.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen hierarchies.
func (h *Hierarchy) IsSubclass(sub, super string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state != StateFrozen {
		return false
	}
	anc, ok := h.ancestors[sub]
	if !ok {
		return false
	}
	_, ok = anc[super]
	return ok
}

// Descendants returns the transitive descendant keys of a class, not
// including the class itself, in breadth-first order.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen hierarchies.
func (h *Hierarchy) Descendants(key string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.descendantsLocked(key)
}

// descendantsLocked is the lock-free core of Descendants. Caller must hold
// at least the read lock.
func (h *Hierarchy) descendantsLocked(key string) []string {
	result := make([]string, 0)
	seen := map[string]struct{}{key: {}}
	queue := append([]string(nil), h.children[key]...)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, dup := seen[next]; dup {
			continue
		}
		seen[next] = struct{}{}
		result = append(result, next)
		queue = append(queue, h.children[next]...)
	}
	return result
}

// Fingerprint returns a stable hex digest of the current declarations.
//
// Description:
//
//	The digest covers every class key, its bases, flags, and slot layout,
//	in key-sorted order. Two hierarchies with identical declarations have
//	identical fingerprints, independent of insertion order. Used by the
//	snapshot store to reject persisted results from a different hierarchy.
func (h *Hierarchy) Fingerprint() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, len(h.order))
	copy(keys, h.order)
	sort.Strings(keys)

	hash := sha256.New()
	for _, key := range keys {
		c := h.classes[key]
		fmt.Fprintf(hash, "%s|%s|%t|%s|%t\n",
			c.Key,
			strings.Join(c.Bases, ","),
			c.MarkedSolid,
			strings.Join(c.Slots, ","),
			c.Root,
		)
	}
	return hex.EncodeToString(hash.Sum(nil))
}
