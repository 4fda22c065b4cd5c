// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package decisioncache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/store"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "xseed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// decisions.indexer_id references indexers(id); the tests record against indexer 1.
	idxStore, err := store.NewIndexerStore(db, make([]byte, 32))
	require.NoError(t, err)
	_, err = idxStore.Create(context.Background(), "test", "https://indexer.invalid", "key")
	require.NoError(t, err)
	return New(store.NewDecisionStore(db))
}

func TestRecordDeduplicatesConcurrentCallers(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = cache.Record(ctx, "Show.S01E01", "guid-1", 1, domain.VerdictMatch, "infohash-1", nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	verdict, ok, err := cache.HasTerminalDecision(ctx, "Show.S01E01", "guid-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.VerdictMatch, verdict)
}
