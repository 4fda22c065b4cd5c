// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/store"
)

// generateAPIKey returns a 64-character hex-encoded random key, grounded
// mirroring a common API-key pattern: 32 random bytes, hex-encoded.
func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func newAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api-key",
		Short: "Generate an admin API key if one is not already set",
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

			_, exists, err := a.settings.Get(cmd.Context(), store.APIKeyHashSettingKey)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("an api key is already set; use reset-api-key to replace it")
			}

			key, err := generateAPIKey()
			if err != nil {
				return err
			}
			if err := a.settings.SetAPIKey(cmd.Context(), key); err != nil {
				return err
			}
			cmd.Println(key)
			return nil
		},
	}
}

func newResetAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-api-key",
		Short: "Replace the admin API key with a newly generated one",
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

			key, err := generateAPIKey()
			if err != nil {
				return err
			}
			if err := a.settings.SetAPIKey(cmd.Context(), key); err != nil {
				return err
			}
			cmd.Println(key)
			return nil
		},
	}
}
