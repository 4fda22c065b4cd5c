// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"
)

func newClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete decisions that never reached a snatched download",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			initLogging(cfg)

			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.cache.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("cleared %d cached decision(s)\n", n)
			return nil
		},
	}
}

func newClearIndexerFailuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-indexer-failures",
		Short: "Reset every indexer's health status and cooldown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			initLogging(cfg)

			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.indexers.ClearFailures(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("cleared indexer failure state")
			return nil
		},
	}
}
