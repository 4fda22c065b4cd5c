// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWebhookNotifyPostsPayload(t *testing.T) {
	var (
		mu  sync.Mutex
		got Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := New(srv.URL)
	w.Notify(context.Background(), "Cross-seed match", "foo matched bar")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got.Title != ""
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, "Cross-seed match", got.Title)
	require.Equal(t, "foo matched bar", got.Body)
}

func TestWebhookNilURLIsNoOp(t *testing.T) {
	w := New("")
	require.NotPanics(t, func() {
		w.Notify(context.Background(), "t", "b")
	})
}

func TestWebhookServerErrorDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := New(srv.URL)
	require.NotPanics(t, func() {
		w.Notify(context.Background(), "t", "b")
	})
	time.Sleep(20 * time.Millisecond)
}
