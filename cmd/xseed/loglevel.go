// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/config"
)

func newSetLogLevelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-log-level <level>",
		Short: "Update logLevel (and logPath/rotation) in config.toml in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.configPath == "" {
				return fmt.Errorf("set-log-level requires --config pointing at an existing config.toml")
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.UpdateLogSettings(flags.configPath, args[0], cfg.LogPath, cfg.LogMaxSize, cfg.LogMaxBackups); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated logLevel to %s in %s\n", args[0], flags.configPath)
			return nil
		},
	}
	return cmd
}
