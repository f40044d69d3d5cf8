// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package overlap answers whether two classes can share a common instance.
//
// The oracle supplies the solid-base-layout dimension of disjointness:
// two classes whose resolved solid bases are incomparable in the subclass
// order can never have a common descendant, independent of any structural
// similarity. It is a necessary-but-not-sufficient overlap test; consumers
// (reachability, overload-overlap, intersection-inhabitation checks)
// combine it with their own disjointness signals.
package overlap

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/solidbase/solid"
)

var tracer = otel.Tracer("solidbase.overlap")

// Relation is the subclass partial order the oracle compares solid bases
// under. *hierarchy.Hierarchy satisfies Relation once frozen.
type Relation interface {
	// IsSubclass reports whether sub is a descendant-or-self of super.
	IsSubclass(sub, super string) bool
}

// Oracle answers overlap queries using resolved solid bases.
//
// Thread Safety: safe for concurrent use.
type Oracle struct {
	resolver *solid.Resolver
	rel      Relation
}

// New creates an oracle over the given resolver and subclass relation.
func New(resolver *solid.Resolver, rel Relation) *Oracle {
	return &Oracle{resolver: resolver, rel: rel}
}

// Overlaps reports whether a value could exist that is simultaneously an
// instance of both classes.
//
// Description:
//
//	Resolves both solid bases and tests their comparability under the
//	subclass order. If either class resolves to an invalid solid base the
//	answer is conservatively true: callers must not derive unreachability
//	claims from classes that are already broken.
//
// Outputs:
//
//	bool - True if the classes may overlap.
//	error - solid.ErrUnknownClass if either key was never declared.
func (o *Oracle) Overlaps(ctx context.Context, a, b string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Oracle.Overlaps")
	defer span.End()

	ra, err := o.resolver.SolidBase(ctx, a)
	if err != nil {
		return false, err
	}

	// Identity shortcut, taken only once a is known to be declared so an
	// undeclared key still errors.
	if a == b {
		span.SetAttributes(attribute.Bool("overlap.result", true))
		return true, nil
	}

	rb, err := o.resolver.SolidBase(ctx, b)
	if err != nil {
		return false, err
	}

	// Invalid on either side means "cannot determine"; default to may-overlap.
	if !ra.Resolved() || !rb.Resolved() {
		span.SetAttributes(
			attribute.Bool("overlap.result", true),
			attribute.Bool("overlap.indeterminate", true),
		)
		return true, nil
	}

	result := ra.Base == rb.Base ||
		o.rel.IsSubclass(ra.Base, rb.Base) ||
		o.rel.IsSubclass(rb.Base, ra.Base)

	span.SetAttributes(
		attribute.Bool("overlap.result", result),
		attribute.String("overlap.solid_base_a", ra.Base),
		attribute.String("overlap.solid_base_b", rb.Base),
	)
	return result, nil
}

// Disjoint reports whether no common instance of the two classes can
// exist. It is the negation of Overlaps, with the same conservative
// treatment of invalid classes (a broken class is never reported disjoint).
func (o *Oracle) Disjoint(ctx context.Context, a, b string) (bool, error) {
	overlaps, err := o.Overlaps(ctx, a, b)
	if err != nil {
		return false, err
	}
	return !overlaps, nil
}
