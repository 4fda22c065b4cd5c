// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/config"
)

func newGenConfigCmd() *cobra.Command {
	var docker bool

	cmd := &cobra.Command{
		Use:   "gen-config",
		Short: "Write a default config.toml to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Defaults()
			if docker {
				cfg.DataDir = "/config"
				cfg.TorrentDir = "/torrents"
				cfg.OutputDir = "/output"
				cfg.LinkDir = "/links"
			}

			out, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal default config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&docker, "docker", false, "Use container-conventional paths (/config, /torrents, /output, /links)")
	return cmd
}
