// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command solidbase analyzes class hierarchies for solid-base conflicts.
//
// Usage:
//
//	solidbase check hierarchy.yaml
//	solidbase check hierarchy.yaml --watch
//	solidbase resolve hierarchy.yaml ClassA ClassB
//	solidbase overlap hierarchy.yaml ClassA ClassB
//	solidbase serve hierarchy.yaml --listen localhost:8080
//
// The hierarchy definition is a YAML file:
//
//	root: object
//	classes:
//	  - name: Solid1
//	    bases: [object]
//	    solid: true
//	  - name: Child
//	    bases: [Solid1]
//	    slots: [x, y]
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/solidbase/config"
	"github.com/AleutianAI/solidbase/logging"
)

var (
	cfg        config.Config
	configPath string
	cacheDir   string
	logger     *logging.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		logger.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Directory for persistent resolution snapshots (overrides config)")

	checkCmd.Flags().BoolVar(&watchMode, "watch", false, "Re-validate when the hierarchy file changes")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")

	rootCmd.AddCommand(checkCmd, resolveCmd, overlapCmd, serveCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg = config.Default()
		}
		if cacheDir != "" {
			cfg.CacheDir = cacheDir
		}

		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(cfg.LogLevel),
			LogDir:  cfg.LogDir,
			Service: "solidbase",
		})
		slog.SetDefault(logger.Slog())
		return nil
	}
}
