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
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/solidbase/hierarchy"
)

// Source provides class declarations and the subclass partial order.
//
// *hierarchy.Hierarchy satisfies Source once frozen. Tests may substitute
// a stub to exercise paths a well-formed hierarchy cannot reach (dangling
// bases, cycles).
type Source interface {
	// GetClass returns the declaration for a class key.
	GetClass(key string) (*hierarchy.Class, bool)

	// IsSubclass reports whether sub is a descendant-or-self of super.
	// The relation must be reflexive and transitive.
	IsSubclass(sub, super string) bool
}

// Resolver computes the unique solid base of each class, memoized for the
// lifetime of the hierarchy snapshot.
//
// Description:
//
//	Resolution is bottom-up over the direct bases: each base contributes a
//	candidate (itself if intrinsically solid, otherwise its own resolved
//	solid base), candidates are deduplicated in first-occurrence order,
//	and the unique most-derived candidate wins. Zero comparable winners
//	means the class has no valid solid base and resolves to KindInvalid.
//
// Thread Safety:
//
//	Safe for concurrent use. Top-level resolutions for the same key are
//	deduplicated with singleflight; published results are first-write-wins
//	so every caller for a given class observes the same final Result.
//
// Invalidation:
//
//	The resolver does not track dependents. After a hierarchy amendment
//	the host must pass the affected key set (returned by the amendment
//	methods) to Invalidate before issuing further queries. Resolutions
//	already in flight when Invalidate runs were computed against the old
//	declarations; their results are returned to the callers that raced
//	the amendment but are never cached.
type Resolver struct {
	src    Source
	oracle *Oracle

	mu      sync.RWMutex
	results map[string]Result
	epoch   uint64
	flight  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResolver creates a resolver over the given source and oracle.
func NewResolver(src Source, oracle *Oracle) *Resolver {
	return &Resolver{
		src:     src,
		oracle:  oracle,
		results: make(map[string]Result),
	}
}

// SolidBase resolves the unique solid base of a class.
//
// Description:
//
//	Returns the cached Result when present, otherwise computes it,
//	caching every intermediate class resolved along the way. Repeated
//	calls without an intervening invalidation return the identical
//	Result.
//
// Inputs:
//
//	ctx - Carries the tracing span; resolution itself does not block.
//	key - The class key to resolve.
//
// Outputs:
//
//	Result - KindResolved with the base key, or KindInvalid.
//	error - ErrUnknownClass if the key was never declared.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (r *Resolver) SolidBase(ctx context.Context, key string) (Result, error) {
	if _, ok := r.src.GetClass(key); !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownClass, key)
	}

	if res, ok := r.cached(key); ok {
		r.hits.Add(1)
		recordCacheLookup(ctx, true)
		return res, nil
	}
	r.misses.Add(1)
	recordCacheLookup(ctx, false)

	v, _, _ := r.flight.Do(key, func() (any, error) {
		// Record which cache epoch this flight resolves against before
		// rechecking the cache, so an invalidation racing the flight is
		// guaranteed to advance past it.
		epoch := r.currentEpoch()

		// A concurrent flight may have published while we queued.
		if res, ok := r.cached(key); ok {
			return res, nil
		}

		ctx, span := startResolveSpan(ctx, key)
		defer span.End()

		start := time.Now()
		res := r.resolve(ctx, key, make(map[string]struct{}), epoch)
		recordResolve(ctx, time.Since(start), res)
		setResolveSpanResult(span, res)
		return res, nil
	})
	return v.(Result), nil
}

// resolve is the recursive core. The visiting set tracks the classes on
// the current resolution chain; revisiting one means the hierarchy has a
// cycle the upstream linearization pass should have rejected, so the class
// is resolved defensively as invalid instead of looping.
func (r *Resolver) resolve(ctx context.Context, key string, visiting map[string]struct{}, epoch uint64) Result {
	if res, ok := r.cached(key); ok {
		return res
	}
	if _, busy := visiting[key]; busy {
		slog.Error("unexpected cycle during solid-base resolution",
			slog.String("class", key))
		recordCycle(ctx)
		return r.publish(Result{Class: key, Kind: KindInvalid, CycleDetected: true}, epoch)
	}
	visiting[key] = struct{}{}
	defer delete(visiting, key)

	c, ok := r.src.GetClass(key)
	if !ok {
		// Dangling base reference. Freeze() rejects these, but a stub
		// source may produce them; the class cannot resolve.
		slog.Warn("solid-base resolution hit undeclared class",
			slog.String("class", key))
		return r.publish(Result{Class: key, Kind: KindInvalid}, epoch)
	}

	// An intrinsically solid class is its own solid base; its bases do not
	// participate in its resolution.
	if r.oracle.IsIntrinsicallySolid(c) {
		return r.publish(Result{Class: key, Kind: KindResolved, Base: key}, epoch)
	}

	// Collect one candidate per direct base, in declared order.
	candidates := make([]string, 0, len(c.Bases))
	seen := make(map[string]struct{}, len(c.Bases))
	for _, base := range c.Bases {
		var candidate string
		if bc, ok := r.src.GetClass(base); ok && r.oracle.IsIntrinsicallySolid(bc) {
			candidate = base
		} else {
			bres := r.resolve(ctx, base, visiting, epoch)
			if bres.Kind == KindInvalid {
				// A class cannot have a valid solid base if any of its
				// bases lacks one. Carry the conflicting candidates up
				// for the validator's message.
				return r.publish(Result{
					Class:         key,
					Kind:          KindInvalid,
					Candidates:    append([]string(nil), bres.Candidates...),
					CycleDetected: bres.CycleDetected,
				}, epoch)
			}
			candidate = bres.Base
		}
		if _, dup := seen[candidate]; !dup {
			seen[candidate] = struct{}{}
			candidates = append(candidates, candidate)
		}
	}

	switch len(candidates) {
	case 0:
		// No bases at all. Below the universal root this cannot happen in
		// a frozen hierarchy; treat as the root base case.
		return r.publish(Result{Class: key, Kind: KindResolved, Base: key}, epoch)
	case 1:
		return r.publish(Result{
			Class:      key,
			Kind:       KindResolved,
			Base:       candidates[0],
			Candidates: candidates,
		}, epoch)
	}

	// More than one distinct candidate: the winner is the unique candidate
	// that is a descendant-or-self of every other candidate (the most
	// derived one).
	winners := make([]string, 0, 1)
	for _, candidate := range candidates {
		dominates := true
		for _, other := range candidates {
			if other == candidate {
				continue
			}
			if !r.src.IsSubclass(candidate, other) {
				dominates = false
				break
			}
		}
		if dominates {
			winners = append(winners, candidate)
		}
	}

	if len(winners) == 1 {
		return r.publish(Result{
			Class:      key,
			Kind:       KindResolved,
			Base:       winners[0],
			Candidates: candidates,
		}, epoch)
	}
	// Zero winners: mutually incomparable candidates. More than one winner
	// cannot happen under a consistent subclass order; treat it as invalid
	// rather than picking arbitrarily.
	return r.publish(Result{Class: key, Kind: KindInvalid, Candidates: candidates}, epoch)
}

// cached returns the published result for a key, if any.
func (r *Resolver) cached(key string) (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[key]
	return res, ok
}

// publish installs a result with first-write-wins semantics, so concurrent
// resolutions of the same class converge on a single published value. A
// result computed against an epoch that an invalidation has since advanced
// past is returned to its caller but never cached: it reflects the
// declarations as they were before the amendment.
func (r *Resolver) publish(res Result, epoch uint64) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.results[res.Class]; ok {
		return existing
	}
	if epoch == r.epoch {
		r.results[res.Class] = res
	}
	return res
}

// currentEpoch reads the cache epoch; Invalidate and Purge advance it.
func (r *Resolver) currentEpoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

// Invalidate evicts the cached results for the given keys.
//
// Description:
//
//	Called by the host after a hierarchy amendment with the affected key
//	set the amendment returned. Evicting a key that has no cached result
//	is a no-op. Advancing the epoch keeps any resolution still in flight
//	from re-caching a pre-amendment result, and forgetting the in-flight
//	singleflight entries keeps queries issued after this call from
//	joining one.
//
// Outputs:
//
//	int - Number of cache entries actually evicted.
func (r *Resolver) Invalidate(keys ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.epoch++
	evicted := 0
	for _, key := range keys {
		r.flight.Forget(key)
		if _, ok := r.results[key]; ok {
			delete(r.results, key)
			evicted++
		}
	}
	return evicted
}

// Purge drops every cached result and resets hit/miss counters.
func (r *Resolver) Purge() {
	r.mu.Lock()
	r.results = make(map[string]Result)
	r.epoch++
	r.mu.Unlock()

	r.hits.Store(0)
	r.misses.Store(0)
}

// Seed installs precomputed results, typically loaded from a snapshot
// store at startup. Existing entries are kept. Returns the number of
// entries installed.
func (r *Resolver) Seed(results ...Result) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	installed := 0
	for _, res := range results {
		if res.Class == "" {
			continue
		}
		if _, ok := r.results[res.Class]; ok {
			continue
		}
		r.results[res.Class] = res
		installed++
	}
	return installed
}

// Snapshot returns all cached results sorted by class key, for
// persistence.
func (r *Resolver) Snapshot() []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Result, 0, len(r.results))
	for _, res := range r.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// Len returns the number of cached results.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}

// Stats returns cache hit/miss counts since creation or the last Purge.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}
