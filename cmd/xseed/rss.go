// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"
)

func newRSSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rss",
		Short: "Run one RSS-feed scan over every configured indexer",
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

			searchees, err := loadSearchees(cmd.Context(), cfg, a.adapter)
			if err != nil {
				return err
			}
			cmd.Printf("loaded %d searchee(s)\n", len(searchees))

			return a.pipeline.RunRSS(cmd.Context(), searchees)
		},
	}
}
