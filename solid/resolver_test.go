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

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/solidbase/hierarchy"
)

// decl is a compact test declaration.
type decl struct {
	key   string
	bases []string
	solid bool
	slots []string
}

// Helper: build a frozen hierarchy rooted at "object" from declarations.
func buildHierarchy(t *testing.T, decls ...decl) *hierarchy.Hierarchy {
	t.Helper()

	h := hierarchy.New()
	require.NoError(t, h.AddClass(&hierarchy.Class{Key: "object", Root: true}))
	for _, d := range decls {
		bases := d.bases
		if len(bases) == 0 {
			bases = []string{"object"}
		}
		require.NoError(t, h.AddClass(&hierarchy.Class{
			Key:         d.key,
			Bases:       bases,
			MarkedSolid: d.solid,
			Slots:       d.slots,
		}), "AddClass(%s)", d.key)
	}
	require.NoError(t, h.Freeze())
	return h
}

// Helper: a resolver with the default oracle over the given hierarchy.
func newTestResolver(t *testing.T, decls ...decl) *Resolver {
	t.Helper()
	return NewResolver(buildHierarchy(t, decls...), NewOracle(DefaultFixedLayoutBuiltins()))
}

func TestSolidBase_RootResolvesToItself(t *testing.T) {
	r := newTestResolver(t)

	res, err := r.SolidBase(context.Background(), "object")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "object", res.Base)
}

func TestSolidBase_IntrinsicallySolidResolvesToItself(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "Marked", solid: true},
		decl{key: "Slotted", slots: []string{"x"}},
		decl{key: "int"},
	)

	for _, key := range []string{"Marked", "Slotted", "int"} {
		res, err := r.SolidBase(context.Background(), key)
		require.NoError(t, err, key)
		assert.Equal(t, KindResolved, res.Kind, key)
		assert.Equal(t, key, res.Base, key)
	}
}

func TestSolidBase_PlainChainResolvesToRoot(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "A"},
		decl{key: "B", bases: []string{"A"}},
		decl{key: "C", bases: []string{"B"}},
	)

	res, err := r.SolidBase(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "object", res.Base)
}

func TestSolidBase_SolidMarkingInheritsDownward(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "Child", bases: []string{"Solid1"}},
		decl{key: "Grandchild", bases: []string{"Child"}},
	)

	res, err := r.SolidBase(context.Background(), "Grandchild")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "Solid1", res.Base)
}

func TestSolidBase_IncompatibleSolidBases(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "Solid2", solid: true},
		decl{key: "Broken", bases: []string{"Solid1", "Solid2"}},
	)

	res, err := r.SolidBase(context.Background(), "Broken")
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, res.Kind)
	assert.Empty(t, res.Base)
	assert.Equal(t, []string{"Solid1", "Solid2"}, res.Candidates)
	assert.False(t, res.CycleDetected)
}

func TestSolidBase_MostDerivedCandidateWins(t *testing.T) {
	// SolidChild derives from Solid1, so a class listing both resolves to
	// the more derived SolidChild.
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "SolidChild", bases: []string{"Solid1"}, solid: true},
		decl{key: "Ok", bases: []string{"SolidChild", "Solid1"}},
	)

	res, err := r.SolidBase(context.Background(), "Ok")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "SolidChild", res.Base)
	assert.Equal(t, []string{"SolidChild", "Solid1"}, res.Candidates)
}

func TestSolidBase_SolidDominatesRootCandidate(t *testing.T) {
	// C1 is plain and contributes the root; Solid1 is a descendant of the
	// root, so Solid1 wins.
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "C1"},
		decl{key: "Mixed", bases: []string{"Solid1", "C1"}},
	)

	res, err := r.SolidBase(context.Background(), "Mixed")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "Solid1", res.Base)
}

func TestSolidBase_DuplicateCandidatesCollapse(t *testing.T) {
	// Both bases resolve to Solid1; after deduplication a single candidate
	// remains and the class is valid.
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "Left", bases: []string{"Solid1"}},
		decl{key: "Right", bases: []string{"Solid1"}},
		decl{key: "Join", bases: []string{"Left", "Right"}},
	)

	res, err := r.SolidBase(context.Background(), "Join")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "Solid1", res.Base)
	assert.Equal(t, []string{"Solid1"}, res.Candidates)
}

func TestSolidBase_ThreeIncomparableCandidates(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "S1", solid: true},
		decl{key: "S2", solid: true},
		decl{key: "S3", solid: true},
		decl{key: "Broken", bases: []string{"S1", "S2", "S3"}},
	)

	res, err := r.SolidBase(context.Background(), "Broken")
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, res.Kind)
	assert.Equal(t, []string{"S1", "S2", "S3"}, res.Candidates)
}

func TestSolidBase_InvalidityPropagates(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "Solid2", solid: true},
		decl{key: "Broken", bases: []string{"Solid1", "Solid2"}},
		decl{key: "Downstream", bases: []string{"Broken"}},
	)

	res, err := r.SolidBase(context.Background(), "Downstream")
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, res.Kind)
	// The conflicting candidates travel up for diagnostics.
	assert.Equal(t, []string{"Solid1", "Solid2"}, res.Candidates)
}

func TestSolidBase_IntrinsicSolidShieldsInvalidAncestry(t *testing.T) {
	// A class that is itself intrinsically solid resolves to itself even
	// when its bases are broken; its bases do not participate.
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "Solid2", solid: true},
		decl{key: "Broken", bases: []string{"Solid1", "Solid2"}},
		decl{key: "Shielded", bases: []string{"Broken"}, solid: true},
	)

	res, err := r.SolidBase(context.Background(), "Shielded")
	require.NoError(t, err)
	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, "Shielded", res.Base)
}

func TestSolidBase_UnknownClass(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.SolidBase(context.Background(), "Ghost")
	require.ErrorIs(t, err, ErrUnknownClass)
}

func TestSolidBase_Idempotent(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "Solid1", solid: true},
		decl{key: "Child", bases: []string{"Solid1"}},
	)
	ctx := context.Background()

	first, err := r.SolidBase(ctx, "Child")
	require.NoError(t, err)
	second, err := r.SolidBase(ctx, "Child")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	hits, misses := r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestSolidBase_IntermediatesAreCached(t *testing.T) {
	r := newTestResolver(t,
		decl{key: "A"},
		decl{key: "B", bases: []string{"A"}},
		decl{key: "C", bases: []string{"B"}},
	)
	ctx := context.Background()

	_, err := r.SolidBase(ctx, "C")
	require.NoError(t, err)

	// Resolving C walks A and B; both results are published on the way.
	assert.GreaterOrEqual(t, r.Len(), 3)

	_, err = r.SolidBase(ctx, "A")
	require.NoError(t, err)
	hits, _ := r.Stats()
	assert.Equal(t, int64(1), hits)
}

func TestInvalidate_AmendmentChangesResolution(t *testing.T) {
	h := buildHierarchy(t,
		decl{key: "A"},
		decl{key: "B", bases: []string{"A"}},
	)
	r := NewResolver(h, NewOracle(DefaultFixedLayoutBuiltins()))
	ctx := context.Background()

	res, err := r.SolidBase(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "object", res.Base)

	affected, err := h.SetMarkedSolid("A", true)
	require.NoError(t, err)
	evicted := r.Invalidate(affected...)
	assert.Positive(t, evicted)

	res, err = r.SolidBase(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "A", res.Base, "amended marking must be visible after invalidation")
}

func TestInvalidate_UncachedKeysAreNoOps(t *testing.T) {
	r := newTestResolver(t, decl{key: "A"})
	assert.Equal(t, 0, r.Invalidate("A", "Ghost"))
}

func TestPurge(t *testing.T) {
	r := newTestResolver(t, decl{key: "A"})
	ctx := context.Background()

	_, err := r.SolidBase(ctx, "A")
	require.NoError(t, err)
	require.Positive(t, r.Len())

	r.Purge()
	assert.Equal(t, 0, r.Len())
	hits, misses := r.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestSeedAndSnapshot(t *testing.T) {
	r := newTestResolver(t, decl{key: "A"})

	installed := r.Seed(
		Result{Class: "A", Kind: KindResolved, Base: "object"},
		Result{Class: "", Kind: KindResolved},
		Result{Class: "A", Kind: KindInvalid},
	)
	assert.Equal(t, 1, installed, "empty keys and duplicates are skipped")

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "A", snap[0].Class)
	assert.Equal(t, KindResolved, snap[0].Kind)

	// A seeded entry short-circuits resolution.
	res, err := r.SolidBase(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "object", res.Base)
	hits, _ := r.Stats()
	assert.Equal(t, int64(1), hits)
}

// stubSource lets the tests exercise defensive paths a frozen hierarchy
// cannot produce: cycles and dangling base references.
type stubSource struct {
	classes map[string]*hierarchy.Class
}

func (s *stubSource) GetClass(key string) (*hierarchy.Class, bool) {
	c, ok := s.classes[key]
	return c, ok
}

func (s *stubSource) IsSubclass(sub, super string) bool {
	return sub == super
}

func TestSolidBase_CycleResolvedDefensively(t *testing.T) {
	src := &stubSource{classes: map[string]*hierarchy.Class{
		"A": {Key: "A", Bases: []string{"B"}},
		"B": {Key: "B", Bases: []string{"A"}},
	}}
	r := NewResolver(src, NewOracle(nil))

	res, err := r.SolidBase(context.Background(), "A")
	require.NoError(t, err, "a cycle is a signal, not an error")
	assert.Equal(t, KindInvalid, res.Kind)
	assert.True(t, res.CycleDetected)

	// The defensive result is cached like any other.
	again, err := r.SolidBase(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestSolidBase_DanglingBaseResolvedInvalid(t *testing.T) {
	src := &stubSource{classes: map[string]*hierarchy.Class{
		"A": {Key: "A", Bases: []string{"Ghost"}},
	}}
	r := NewResolver(src, NewOracle(nil))

	res, err := r.SolidBase(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, res.Kind)
	assert.False(t, res.CycleDetected)
}
