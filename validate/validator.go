// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate turns resolution failures into class-level diagnostics.
//
// The validator is a thin consumer of the resolver: it never recomputes
// candidates itself, it reads them off the resolver's Result so the
// diagnostic names exactly the conflicting solid bases discovered during
// resolution. Class-level failures are collected and reported, never
// raised as control flow; a single invalid class does not prevent
// validating unrelated classes.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/solidbase/solid"
)

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityError is a user-level declaration error.
	SeverityError Severity = iota

	// SeverityInternal marks an analyzer bug surfaced defensively, such as
	// an inheritance cycle the upstream linearization pass let through.
	SeverityInternal
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic codes.
const (
	// CodeInvalidSolidBase reports mutually incompatible candidate solid
	// bases in a class's ancestry.
	CodeInvalidSolidBase = "invalid-solid-base"

	// CodeUnexpectedCycle reports a defensively resolved inheritance
	// cycle. Hosts should surface this as a tooling bug, not a user error.
	CodeUnexpectedCycle = "unexpected-cycle"
)

// Diagnostic is a single reported problem at a class's declaration site.
type Diagnostic struct {
	// Class is the key of the class the diagnostic is attached to.
	Class string `json:"class"`

	// Severity distinguishes user errors from internal-error signals.
	Severity Severity `json:"severity"`

	// Code is the stable diagnostic code.
	Code string `json:"code"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Candidates names the mutually incompatible candidate solid bases,
	// in first-occurrence order. Empty for cycle diagnostics.
	Candidates []string `json:"candidates,omitempty"`
}

// Validator produces zero or one diagnostic per class.
//
// Thread Safety: safe for concurrent use; all state lives in the resolver.
type Validator struct {
	resolver *solid.Resolver
}

// New creates a validator over the given resolver.
func New(resolver *solid.Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// Validate checks a single class declaration.
//
// Description:
//
//	Resolves the class's solid base and converts an invalid result into
//	exactly one diagnostic. A valid class yields no diagnostics. The
//	class stays declared either way; validation never blocks subsequent
//	analysis.
//
// Outputs:
//
//	[]Diagnostic - Empty, or exactly one entry.
//	error - solid.ErrUnknownClass if the key was never declared.
func (v *Validator) Validate(ctx context.Context, key string) ([]Diagnostic, error) {
	res, err := v.resolver.SolidBase(ctx, key)
	if err != nil {
		return nil, err
	}
	if res.Resolved() {
		return []Diagnostic{}, nil
	}
	return []Diagnostic{v.diagnose(res)}, nil
}

// ValidateAll checks every given class, collecting diagnostics.
//
// Description:
//
//	Classes are validated in the given order. Unknown keys are skipped
//	with a warning so one bad key cannot abort the pass; every invalid
//	class contributes exactly one diagnostic.
func (v *Validator) ValidateAll(ctx context.Context, keys []string) []Diagnostic {
	diagnostics := make([]Diagnostic, 0)
	for _, key := range keys {
		diags, err := v.Validate(ctx, key)
		if err != nil {
			if errors.Is(err, solid.ErrUnknownClass) {
				slog.Warn("skipping unknown class during validation",
					slog.String("class", key))
				continue
			}
			slog.Error("validation failed",
				slog.String("class", key),
				slog.String("error", err.Error()))
			continue
		}
		diagnostics = append(diagnostics, diags...)
	}
	return diagnostics
}

// diagnose builds the diagnostic for an invalid resolution result.
func (v *Validator) diagnose(res solid.Result) Diagnostic {
	if res.CycleDetected {
		return Diagnostic{
			Class:    res.Class,
			Severity: SeverityInternal,
			Code:     CodeUnexpectedCycle,
			Message: fmt.Sprintf(
				"inheritance cycle detected while resolving the solid base of %q; this indicates a bug in the hierarchy linearization, not a declaration error",
				res.Class),
		}
	}

	msg := fmt.Sprintf("class %q has no unique solid base", res.Class)
	if len(res.Candidates) > 0 {
		msg += fmt.Sprintf("; incompatible candidate solid bases: %s",
			strings.Join(res.Candidates, ", "))
	}
	return Diagnostic{
		Class:      res.Class,
		Severity:   SeverityError,
		Code:       CodeInvalidSolidBase,
		Message:    msg,
		Candidates: append([]string(nil), res.Candidates...),
	}
}
