// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/solidbase/api"
	"github.com/AleutianAI/solidbase/hierarchy"
	badgerstore "github.com/AleutianAI/solidbase/storage/badger"
	"github.com/AleutianAI/solidbase/validate"
)

var (
	watchMode  bool
	listenAddr string

	rootCmd = &cobra.Command{
		Use:   "solidbase",
		Short: "Class-hierarchy solidity and disjointness analyzer",
		Long: `solidbase resolves the unique solid base of every class in a
nominal hierarchy, reports classes whose bases contribute mutually
incompatible solid bases, and answers whether two classes can ever
share a common instance.`,
		SilenceUsage: true,
	}

	checkCmd = &cobra.Command{
		Use:   "check [hierarchy file]",
		Short: "Validate every class declaration in a hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve [hierarchy file] [class...]",
		Short: "Print the resolved solid base of one or more classes",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runResolve,
	}

	overlapCmd = &cobra.Command{
		Use:   "overlap [hierarchy file] [class A] [class B]",
		Short: "Report whether two classes can share a common instance",
		Args:  cobra.ExactArgs(3),
		RunE:  runOverlap,
	}

	serveCmd = &cobra.Command{
		Use:   "serve [hierarchy file]",
		Short: "Serve the analyzer over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
)

// newService loads the hierarchy file and wires the analyzer, warming the
// resolver from the snapshot store when a cache directory is configured.
func newService(ctx context.Context, path string) (*api.Service, func(), error) {
	hier, err := hierarchy.Load(path)
	if err != nil {
		return nil, nil, err
	}
	svc := api.NewService(hier, cfg.FixedLayoutBuiltins)

	cleanup := func() {}
	if cfg.CacheDir != "" {
		store, err := badgerstore.OpenStoreAt(cfg.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening snapshot store: %w", err)
		}

		fingerprint := hier.Fingerprint()
		seeded, err := store.LoadSnapshot(ctx, fingerprint)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		if n := svc.Resolver().Seed(seeded...); n > 0 {
			slog.Info("warmed resolver from snapshot",
				slog.Int("results", n),
				slog.String("fingerprint", fingerprint[:12]))
		}

		cleanup = func() {
			if _, err := store.SaveSnapshot(ctx, hier.Fingerprint(), svc.Resolver().Snapshot()); err != nil {
				slog.Warn("saving snapshot failed", slog.String("error", err.Error()))
			}
			store.Close()
		}
	}
	return svc, cleanup, nil
}

// checkOnce validates every class and prints diagnostics. Returns the
// number of error-severity diagnostics.
func checkOnce(ctx context.Context, path string) (int, error) {
	svc, cleanup, err := newService(ctx, path)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	diagnostics := svc.ValidateAll(ctx)
	for _, d := range diagnostics {
		fmt.Fprintf(os.Stdout, "%s: %s: %s\n", d.Severity, d.Code, d.Message)
	}

	errorCount := 0
	for _, d := range diagnostics {
		if d.Severity == validate.SeverityError {
			errorCount++
		}
	}
	fmt.Fprintf(os.Stdout, "checked %d classes: %d problem(s)\n",
		svc.Hierarchy().Len(), len(diagnostics))
	return errorCount, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	errorCount, err := checkOnce(ctx, path)
	if err != nil {
		return err
	}

	if !watchMode {
		if errorCount > 0 {
			return fmt.Errorf("%d invalid class(es)", errorCount)
		}
		return nil
	}

	// Watch mode: re-validate on every definition change until interrupted.
	reloads := make(chan struct{}, 1)
	watcher, err := hierarchy.NewWatcher(path, func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	watchCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := watcher.Start(watchCtx); err != nil {
		return err
	}
	slog.Info("watching hierarchy file", slog.String("path", path))

	for {
		select {
		case <-watchCtx.Done():
			return nil
		case <-reloads:
			slog.Info("hierarchy file changed, re-checking")
			if _, err := checkOnce(watchCtx, path); err != nil {
				slog.Error("re-check failed", slog.String("error", err.Error()))
			}
		}
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, cleanup, err := newService(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	for _, key := range args[1:] {
		res, err := svc.Resolve(ctx, key)
		if err != nil {
			return err
		}
		if res.Resolved() {
			fmt.Fprintf(os.Stdout, "%s: solid base %s\n", key, res.Base)
		} else {
			fmt.Fprintf(os.Stdout, "%s: invalid (candidates: %v)\n", key, res.Candidates)
		}
	}
	return nil
}

func runOverlap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, cleanup, err := newService(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	overlaps, err := svc.Overlaps(ctx, args[1], args[2])
	if err != nil {
		return err
	}
	if overlaps {
		fmt.Fprintf(os.Stdout, "%s and %s may overlap\n", args[1], args[2])
	} else {
		fmt.Fprintf(os.Stdout, "%s and %s are disjoint\n", args[1], args[2])
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, cleanup, err := newService(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	addr := cfg.Listen
	if listenAddr != "" {
		addr = listenAddr
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("solidbase"))

	v1 := router.Group("/v1")
	api.RegisterRoutes(v1, api.NewHandlers(svc))

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting solidbase server",
			slog.String("address", addr),
			slog.String("session_id", svc.SessionID()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-serveCtx.Done():
		slog.Info("shutting down solidbase server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}
