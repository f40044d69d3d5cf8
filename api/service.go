// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the analyzer over HTTP for long-running checker
// hosts.
//
// The HTTP surface is a thin veneer: every endpoint delegates to the same
// resolver, validator, and disjointness oracle a linked-in host would call
// directly. Amendment endpoints drive the invalidation contract end to
// end (amend the hierarchy, evict the affected resolver entries) so every
// query issued after an amendment completes reflects the amended
// declarations.
package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AleutianAI/solidbase/hierarchy"
	"github.com/AleutianAI/solidbase/overlap"
	"github.com/AleutianAI/solidbase/solid"
	"github.com/AleutianAI/solidbase/validate"
)

// ServiceVersion is the analyzer service version.
const ServiceVersion = "0.1.0"

// Service wires the analyzer components for one hierarchy snapshot.
//
// Thread Safety: safe for concurrent use; all mutable state lives in the
// hierarchy and resolver, which synchronize internally.
type Service struct {
	sessionID string
	hier      *hierarchy.Hierarchy
	resolver  *solid.Resolver
	validator *validate.Validator
	overlaps  *overlap.Oracle
}

// NewService creates a service over a frozen hierarchy.
//
// Inputs:
//
//	hier - The frozen hierarchy snapshot.
//	fixedLayoutBuiltins - The builtin set fed to the solidness oracle.
func NewService(hier *hierarchy.Hierarchy, fixedLayoutBuiltins []string) *Service {
	oracle := solid.NewOracle(fixedLayoutBuiltins)
	resolver := solid.NewResolver(hier, oracle)

	return &Service{
		sessionID: uuid.NewString(),
		hier:      hier,
		resolver:  resolver,
		validator: validate.New(resolver),
		overlaps:  overlap.New(resolver, hier),
	}
}

// SessionID returns the identifier assigned to this analysis session.
func (s *Service) SessionID() string {
	return s.sessionID
}

// Hierarchy returns the underlying hierarchy snapshot.
func (s *Service) Hierarchy() *hierarchy.Hierarchy {
	return s.hier
}

// Resolver returns the underlying resolver, for snapshot persistence.
func (s *Service) Resolver() *solid.Resolver {
	return s.resolver
}

// Resolve resolves the solid base of a class.
func (s *Service) Resolve(ctx context.Context, key string) (solid.Result, error) {
	return s.resolver.SolidBase(ctx, key)
}

// Overlaps answers whether two classes can share a common instance.
func (s *Service) Overlaps(ctx context.Context, a, b string) (bool, error) {
	return s.overlaps.Overlaps(ctx, a, b)
}

// ValidateAll validates every declared class in declaration order.
func (s *Service) ValidateAll(ctx context.Context) []validate.Diagnostic {
	return s.validator.ValidateAll(ctx, s.hier.Keys())
}

// SetMarkedSolid amends a class's explicit solid marking and evicts the
// affected cached results.
//
// Outputs:
//
//	[]string - The affected class keys.
//	int - The number of cache entries evicted.
//	error - Non-nil if the amendment was rejected.
func (s *Service) SetMarkedSolid(key string, marked bool) ([]string, int, error) {
	affected, err := s.hier.SetMarkedSolid(key, marked)
	if err != nil {
		return nil, 0, err
	}
	evicted := s.resolver.Invalidate(affected...)
	slog.Info("amended solid marking",
		slog.String("class", key),
		slog.Bool("marked", marked),
		slog.Int("affected", len(affected)),
		slog.Int("evicted", evicted))
	return affected, evicted, nil
}

// AmendBases amends a class's declared bases and evicts the affected
// cached results.
func (s *Service) AmendBases(key string, bases []string) ([]string, int, error) {
	affected, err := s.hier.AmendBases(key, bases)
	if err != nil {
		return nil, 0, err
	}
	evicted := s.resolver.Invalidate(affected...)
	slog.Info("amended bases",
		slog.String("class", key),
		slog.Int("affected", len(affected)),
		slog.Int("evicted", evicted))
	return affected, evicted, nil
}
