// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package decisioncache wraps internal/store's DecisionStore with
// concurrency dedup: a bulk search pass and an RSS scan can both reach the
// same (searchee, candidate) pair at nearly the same time, and without
// coordination both would independently match and snatch it. This is the
// concrete mechanism behind the "deduplicating concurrent work against a
// decision cache" requirement.
package decisioncache

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/store"
)

// Cache fronts a store.DecisionStore with a singleflight.Group keyed by
// (searchee_name, candidate_guid), so concurrent callers racing on the same
// pair block on one in-flight check-then-record instead of both running it.
type Cache struct {
	store *store.DecisionStore
	group singleflight.Group
}

func New(decisionStore *store.DecisionStore) *Cache {
	return &Cache{store: decisionStore}
}

func dedupKey(searcheeName, candidateGUID string) string {
	h := xxhash.New()
	_, _ = h.WriteString(searcheeName)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(candidateGUID)
	return fmt.Sprintf("%x", h.Sum64())
}

// HasTerminalDecision returns a cached terminal verdict for (searcheeName,
// candidateGUID) if one exists, letting the pipeline skip re-matching.
func (c *Cache) HasTerminalDecision(ctx context.Context, searcheeName, candidateGUID string) (domain.Verdict, bool, error) {
	return c.store.HasTerminalDecision(ctx, searcheeName, candidateGUID)
}

// Record serializes concurrent Record calls for the same (searcheeName,
// candidateGUID) pair through singleflight, then delegates to the
// underlying store's idempotent-and-sticky write (§4.D).
func (c *Cache) Record(ctx context.Context, searcheeName, candidateGUID string, indexerID int, verdict domain.Verdict, infoHash string, fuzzyFactor *float64) error {
	key := dedupKey(searcheeName, candidateGUID)
	_, err, _ := c.group.Do(key, func() (any, error) {
		return nil, c.store.Record(ctx, searcheeName, candidateGUID, indexerID, verdict, infoHash, fuzzyFactor)
	})
	return err
}

// ClearCache deletes decisions that never reached a snatched download (the
// `clear-cache` CLI operation).
func (c *Cache) ClearCache(ctx context.Context) (int64, error) {
	return c.store.ClearCache(ctx)
}
