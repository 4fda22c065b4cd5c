// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notifier implements the fire-and-forget webhook notification: a
// terminal pipeline outcome is POSTed as {title, body} JSON with a
// 10-second timeout, and the result is logged but never returned to the
// caller (build payload, POST, log don't propagate).
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/buildinfo"
)

const defaultTimeout = 10 * time.Second

// Payload is the wire shape of a single notification (§6).
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Webhook posts Payload{title, body} to a configured URL. The zero value
// with an empty URL is a valid no-op notifier, so callers never need a
// nullable-notifier branch.
type Webhook struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// New builds a Webhook notifier. An empty url produces a notifier whose
// Notify calls are silent no-ops.
func New(url string) *Webhook {
	return &Webhook{
		URL:     url,
		Client:  &http.Client{},
		Timeout: defaultTimeout,
	}
}

// Notify fires the webhook in the background and returns immediately;
// per §5, notification is a suspension point but never one the pipeline
// waits on. Failures are logged, never returned — the notifier must never
// be able to fail a pass.
func (w *Webhook) Notify(ctx context.Context, title, body string) {
	if w == nil || w.URL == "" {
		return
	}

	go func() {
		timeout := w.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := w.send(reqCtx, title, body); err != nil {
			log.Warn().Err(err).Str("url", w.URL).Msg("notification webhook failed")
		}
	}()
}

func (w *Webhook) send(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(Payload{Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
