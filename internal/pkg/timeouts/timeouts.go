// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package timeouts derives the per-request Torznab search timeout from how
// many indexers one searchee's search fans out across; the pipeline passes
// it to internal/indexer.Client.Search, capped by --search-timeout. A
// search touching many indexers gets a longer budget than one touching a
// handful, never more than MaxSearchTimeout.
package timeouts

import (
	"context"
	"time"
)

const (
	DefaultSearchTimeout    = 9 * time.Second
	MaxSearchTimeout        = 45 * time.Second
	PerIndexerSearchTimeout = 1 * time.Second
)

// AdaptiveSearchTimeout scales DefaultSearchTimeout by one
// PerIndexerSearchTimeout for every indexer beyond the first, capped at
// MaxSearchTimeout.
func AdaptiveSearchTimeout(indexerCount int) time.Duration {
	if indexerCount <= 1 {
		return DefaultSearchTimeout
	}
	t := DefaultSearchTimeout + time.Duration(indexerCount-1)*PerIndexerSearchTimeout
	if t > MaxSearchTimeout {
		return MaxSearchTimeout
	}
	return t
}

// WithSearchTimeout returns a context bounded by timeout, unless ctx
// already carries an earlier deadline. A non-positive timeout falls back
// to DefaultSearchTimeout. A nil ctx is treated as context.Background().
func WithSearchTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
