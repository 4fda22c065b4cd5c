// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/domain"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Run one bulk-search pass over every configured searchee",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOneShotSearch(cmd, domain.ActionSave)
		},
	}
}

func newInjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inject",
		Short: "Run one bulk-search pass, injecting matches into the active client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOneShotSearch(cmd, domain.ActionInject)
		},
	}
}

// runOneShotSearch forces the pass's action regardless of config/flags:
// `inject` always injects, `search` always just saves, matching spec §6's
// description of the two commands as action overrides rather than
// synonyms for a --action flag.
func runOneShotSearch(cmd *cobra.Command, action domain.Action) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	initLogging(cfg)
	cfg.Action = string(action)

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

	return a.pipeline.RunSearch(cmd.Context(), searchees)
}
