// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/notifier"
)

func newTestNotificationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-notification",
		Short: "Send a test payload to the configured notification webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			initLogging(cfg)

			if cfg.NotificationWebhookURL == "" {
				return fmt.Errorf("no --notification-webhook-url configured")
			}

			w := notifier.New(cfg.NotificationWebhookURL)
			w.Notify(cmd.Context(), "Test notification", "This is a test notification from xseed.")
			cmd.Println("test notification sent, check logs for delivery status")
			return nil
		},
	}
}
