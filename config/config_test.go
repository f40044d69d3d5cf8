// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Helper: write a config file into a temp dir and return its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != "localhost:8080" {
		t.Errorf("Listen = %q, expected localhost:8080", cfg.Listen)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, expected info", cfg.LogLevel)
	}
	if len(cfg.FixedLayoutBuiltins) == 0 {
		t.Error("FixedLayoutBuiltins is empty")
	}
	if cfg.CacheDir != "" {
		t.Errorf("CacheDir = %q, expected empty (persistence off by default)", cfg.CacheDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
fixed_layout_builtins: [Fixnum, Flonum]
cache_dir: /tmp/solidbase-cache
listen: "127.0.0.1:9000"
log_level: debug
log_dir: /tmp/solidbase-logs
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(cfg.FixedLayoutBuiltins) != 2 || cfg.FixedLayoutBuiltins[0] != "Fixnum" {
		t.Errorf("FixedLayoutBuiltins = %v", cfg.FixedLayoutBuiltins)
	}
	if cfg.CacheDir != "/tmp/solidbase-cache" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.LogDir != "/tmp/solidbase-logs" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Listen != "localhost:8080" {
		t.Errorf("Listen = %q, expected default", cfg.Listen)
	}
	if len(cfg.FixedLayoutBuiltins) == 0 {
		t.Error("FixedLayoutBuiltins not defaulted")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, expected warn", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "listen: [unclosed"},
		{"bad log level", "log_level: loud\n"},
		{"bad listen address", "listen: not-an-address\n"},
		{"duplicate builtins", "fixed_layout_builtins: [int, int]\n"},
		{"empty builtin entry", "fixed_layout_builtins: [int, \"\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() = %v, expected ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	if err == nil {
		t.Fatal("Load() on a missing file returned nil error")
	}
}

