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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for resolution operations.
var (
	tracer = otel.Tracer("solidbase.solid")
	meter  = otel.Meter("solidbase.solid")
)

// Metrics for solid-base resolution.
var (
	resolveLatency metric.Float64Histogram
	resolveTotal   metric.Int64Counter
	cacheLookups   metric.Int64Counter
	cycleTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		resolveLatency, err = meter.Float64Histogram(
			"solid_resolve_duration_seconds",
			metric.WithDescription("Duration of solid-base resolutions"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolveTotal, err = meter.Int64Counter(
			"solid_resolve_total",
			metric.WithDescription("Total number of solid-base resolutions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheLookups, err = meter.Int64Counter(
			"solid_cache_lookups_total",
			metric.WithDescription("Resolution cache lookups by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cycleTotal, err = meter.Int64Counter(
			"solid_unexpected_cycles_total",
			metric.WithDescription("Defensively resolved hierarchy cycles"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordResolve records metrics for a completed top-level resolution.
func recordResolve(ctx context.Context, duration time.Duration, res Result) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("resolved", res.Resolved()))
	resolveLatency.Record(ctx, duration.Seconds(), attrs)
	resolveTotal.Add(ctx, 1, attrs)
}

// recordCacheLookup records a cache hit or miss.
func recordCacheLookup(ctx context.Context, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// recordCycle records a defensively resolved cycle.
func recordCycle(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	cycleTotal.Add(ctx, 1)
}

// startResolveSpan creates a span for a top-level resolution.
func startResolveSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Resolver.SolidBase",
		trace.WithAttributes(
			attribute.String("solid.class", key),
		),
	)
}

// setResolveSpanResult sets the result attributes on a resolve span.
func setResolveSpanResult(span trace.Span, res Result) {
	span.SetAttributes(
		attribute.String("solid.kind", res.Kind.String()),
		attribute.String("solid.base", res.Base),
		attribute.Bool("solid.cycle_detected", res.CycleDetected),
	)
}
