// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/domain"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xseed.db")
	db, err := database.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testEncryptionKey() []byte {
	return []byte("01234567890123456789012345678901")[:32]
}

func TestIndexerStoreCreateAndCooldown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	store, err := NewIndexerStore(db, testEncryptionKey())
	require.NoError(t, err)

	idx, err := store.Create(ctx, "example", "https://example.com/api", "secret-key")
	require.NoError(t, err)
	require.Equal(t, domain.IndexerStatus("OK"), idx.Status)

	key, err := store.GetDecryptedAPIKey(idx)
	require.NoError(t, err)
	require.Equal(t, "secret-key", key)

	now := time.Now()
	retryAfter, err := store.MarkRateLimited(ctx, idx.ID, now)
	require.NoError(t, err)
	require.True(t, retryAfter.Sub(now) >= time.Minute)

	refreshed, err := store.Get(ctx, idx.ID)
	require.NoError(t, err)
	require.Equal(t, domain.IndexerStatus("RATE_LIMITED"), refreshed.Status)
	require.True(t, refreshed.InCooldown(now))
	require.False(t, refreshed.InCooldown(now.Add(2*time.Hour)))

	// Second consecutive offense advances to the ladder's next step (5 minutes).
	retryAfter2, err := store.MarkRateLimited(ctx, idx.ID, now)
	require.NoError(t, err)
	require.True(t, retryAfter2.Sub(now) >= 5*time.Minute)

	require.NoError(t, store.MarkSuccess(ctx, idx.ID))
	refreshed2, err := store.Get(ctx, idx.ID)
	require.NoError(t, err)
	require.Equal(t, domain.IndexerStatus("OK"), refreshed2.Status)
	require.False(t, refreshed2.RetryAfter.Valid)
}

func TestDecisionStoreIsIdempotentAndSticky(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	idxStore, err := NewIndexerStore(db, testEncryptionKey())
	require.NoError(t, err)
	idx, err := idxStore.Create(ctx, "example", "https://example.com/api", "key")
	require.NoError(t, err)

	decisions := NewDecisionStore(db)

	require.NoError(t, decisions.Record(ctx, "Show.S01E01", "guid-1", idx.ID, domain.VerdictMatch, "abc123", nil))
	first, err := decisions.Get(ctx, "Show.S01E01", "guid-1")
	require.NoError(t, err)
	require.Equal(t, domain.VerdictMatch, first.Verdict)

	// Re-running with a weaker verdict must not downgrade the terminal match.
	require.NoError(t, decisions.Record(ctx, "Show.S01E01", "guid-1", idx.ID, domain.VerdictSizeMismatch, "", nil))
	second, err := decisions.Get(ctx, "Show.S01E01", "guid-1")
	require.NoError(t, err)
	require.Equal(t, domain.VerdictMatch, second.Verdict)
	require.True(t, second.LastSeen.Equal(first.LastSeen) || second.LastSeen.After(first.LastSeen))

	cleared, err := decisions.ClearCache(ctx)
	require.NoError(t, err)
	require.Zero(t, cleared) // this decision has an infohash, so it survives clear-cache
}

func TestJobStateSingleFlight(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	jobs := NewJobStateStore(db)

	acquired, err := jobs.TryAcquire(ctx, domain.JobSearch)
	require.NoError(t, err)
	require.True(t, acquired)

	acquiredAgain, err := jobs.TryAcquire(ctx, domain.JobSearch)
	require.NoError(t, err)
	require.False(t, acquiredAgain)

	require.NoError(t, jobs.Release(ctx, domain.JobSearch, time.Hour))

	acquiredOnceMore, err := jobs.TryAcquire(ctx, domain.JobSearch)
	require.NoError(t, err)
	require.True(t, acquiredOnceMore)
}

func TestSettingsStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	settings := NewSettingsStore(db)

	_, ok, err := settings.Get(ctx, APIKeyHashSettingKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, settings.Set(ctx, APIKeyHashSettingKey, "hash-1"))
	value, ok, err := settings.Get(ctx, APIKeyHashSettingKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hash-1", value)

	require.NoError(t, settings.Set(ctx, APIKeyHashSettingKey, "hash-2"))
	value2, _, err := settings.Get(ctx, APIKeyHashSettingKey)
	require.NoError(t, err)
	require.Equal(t, "hash-2", value2)
}
