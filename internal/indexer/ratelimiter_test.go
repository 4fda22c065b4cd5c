// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterEnforcesMinInterval(t *testing.T) {
	r := NewRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, r.BeforeRequest(ctx, 1, WaitOptions{}))
	require.NoError(t, r.BeforeRequest(ctx, 1, WaitOptions{}))
	require.True(t, time.Since(start) >= 50*time.Millisecond)
}

func TestRateLimiterMaxWaitReturnsError(t *testing.T) {
	r := NewRateLimiter(time.Hour)
	ctx := context.Background()

	require.NoError(t, r.BeforeRequest(ctx, 1, WaitOptions{}))
	err := r.BeforeRequest(ctx, 1, WaitOptions{MaxWait: time.Millisecond})
	require.Error(t, err)
	var waitErr *WaitExceededError
	require.ErrorAs(t, err, &waitErr)
}

func TestRateLimiterCooldownBlocksUntilCleared(t *testing.T) {
	r := NewRateLimiter(time.Millisecond)
	r.SetCooldown(2, time.Now().Add(time.Hour))

	inCooldown, _ := r.IsInCooldown(2)
	require.True(t, inCooldown)

	r.ClearCooldown(2)
	inCooldown, _ = r.IsInCooldown(2)
	require.False(t, inCooldown)
}
