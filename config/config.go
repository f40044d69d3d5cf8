// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds analyzer configuration loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/solidbase/solid"
)

// ErrInvalidConfig is returned when a config file fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// configValidate is the shared validator instance for config structs.
var configValidate = validator.New()

// Config is the analyzer configuration.
//
// All fields are optional; zero values fall back to the defaults from
// Default().
type Config struct {
	// FixedLayoutBuiltins overrides the default set of builtin classes
	// with fixed runtime layout fed to the solidness oracle.
	FixedLayoutBuiltins []string `yaml:"fixed_layout_builtins" validate:"omitempty,unique,dive,min=1"`

	// CacheDir enables persistent resolution snapshots in the given
	// directory. Empty disables persistence.
	CacheDir string `yaml:"cache_dir"`

	// Listen is the address the HTTP service binds to.
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`

	// LogLevel sets the slog level: debug, info, warn, or error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogDir enables JSON file logging alongside stderr. Empty disables
	// the log file.
	LogDir string `yaml:"log_dir"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		FixedLayoutBuiltins: solid.DefaultFixedLayoutBuiltins(),
		Listen:              "localhost:8080",
		LogLevel:            "info",
	}
}

// Load reads a YAML config file, fills unset fields with defaults, and
// validates the result.
//
// Errors:
//
//	ErrInvalidConfig - Malformed YAML or a field that fails validation
//	                   (wrapped with detail).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields from Default().
func (c *Config) applyDefaults() {
	defaults := Default()
	if len(c.FixedLayoutBuiltins) == 0 {
		c.FixedLayoutBuiltins = defaults.FixedLayoutBuiltins
	}
	if c.Listen == "" {
		c.Listen = defaults.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
