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

// Kind classifies a resolution result.
type Kind int

const (
	// KindResolved indicates the class has a unique valid solid base.
	KindResolved Kind = iota

	// KindInvalid indicates no unique solid base exists; the class cannot
	// be instantiated validly.
	KindInvalid
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result is the resolution outcome for a single class.
//
// Results are values: once published by the resolver they never change for
// the lifetime of the hierarchy snapshot, so callers may retain them
// freely.
type Result struct {
	// Class is the key of the resolved class.
	Class string `json:"class"`

	// Kind is KindResolved or KindInvalid.
	Kind Kind `json:"kind"`

	// Base is the key of the unique solid base. Empty when Kind is
	// KindInvalid. A class that is itself intrinsically solid resolves to
	// its own key.
	Base string `json:"base,omitempty"`

	// Candidates are the distinct solid-base candidates contributed by the
	// direct bases, deduplicated in first-occurrence order. Populated for
	// multi-candidate resolutions and for invalid results, where it names
	// the mutually incompatible candidates for diagnostics.
	Candidates []string `json:"candidates,omitempty"`

	// CycleDetected marks a defensively-resolved recursion, which signals
	// a bug in the upstream linearization pass rather than a user error.
	CycleDetected bool `json:"cycle_detected,omitempty"`
}

// Resolved reports whether the class has a unique valid solid base.
func (r Result) Resolved() bool {
	return r.Kind == KindResolved
}
