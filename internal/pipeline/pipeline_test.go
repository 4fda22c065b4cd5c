// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/decisioncache"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/indexer"
	"github.com/xseedapp/xseed/internal/matcher"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/internal/store"
)

const sampleTorznabSearchRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
<channel>
  <item>
    <title>Some.Show.S01E01.OTHER-GROUP</title>
    <guid>guid-1</guid>
    <link>https://indexer.example/download/1</link>
    <pubDate>Fri, 06 Aug 2026 12:00:00 +0000</pubDate>
    <torznab:attr name="infohash" value="AAAA" />
    <torznab:attr name="size" value="10" />
  </item>
</channel>
</rss>`

func newTestPipeline(t *testing.T, handler http.HandlerFunc) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := database.New(filepath.Join(t.TempDir(), "xseed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key := make([]byte, 32)
	indexerStore, err := store.NewIndexerStore(db, key)
	require.NoError(t, err)
	timestampStore := store.NewTimestampStore(db)
	decisionStore := store.NewDecisionStore(db)

	idx, err := indexerStore.Create(context.Background(), "test-indexer", srv.URL, "apikey")
	require.NoError(t, err)
	require.NoError(t, indexerStore.SetCaps(context.Background(), idx.ID, store.Caps{Search: true}))

	limiter := indexer.NewRateLimiter(0)
	client := indexer.NewClient(limiter)
	registry := indexer.NewRegistry(indexerStore, client, 5*time.Second)

	cfg := Config{
		OutputDir:   t.TempDir(),
		Action:      domain.ActionSave,
		SearchLimit: 0,
		Policy: matcher.Policy{
			Mode:                domain.MatchModeSafe,
			FuzzySizeThreshold:  0.02,
			IgnorableExtensions: domain.DefaultIgnorableExtensions,
		},
		SearchTimeout: 5 * time.Second,
		SnatchTimeout: 5 * time.Second,
	}

	return New(cfg, registry, client, indexerStore, timestampStore, decisioncache.New(decisionStore), nil)
}

// TestRunSearchRecordsSizeMismatchWithoutSnatching exercises the bulk search
// path end to end against a fake Torznab server: the RSS item's advertised
// size (10) does not fit the searchee's file (1000) within the fuzzy
// threshold, so the matcher must reject before Snatch is ever called - the
// fake server has no download route, so a snatch attempt would itself fail
// the test via a 404.
func TestRunSearchRecordsSizeMismatchWithoutSnatching(t *testing.T) {
	p := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("t") {
		case "search":
			fmt.Fprint(w, sampleTorznabSearchRSS)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	s := &searchee.Searchee{
		Origin: searchee.OriginTorrent,
		Name:   "Some.Show.S01E01",
		Files:  []searchee.File{{RelPath: "episode.mkv", Size: 1000}},
	}

	err := p.RunSearch(context.Background(), []*searchee.Searchee{s})
	require.NoError(t, err)

	verdict, ok, err := p.cache.HasTerminalDecision(context.Background(), s.Name, "guid-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.VerdictSizeMismatch, verdict)
}

func TestRunSearchSkipsIndexerLackingRequiredCap(t *testing.T) {
	called := false
	p := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNotFound)
	})

	// Override caps to advertise nothing: BuildPlan must reject every plan
	// before a request is ever issued.
	idxs, err := p.registry.EligibleIndexers(context.Background())
	require.NoError(t, err)
	require.Len(t, idxs, 1)
	require.NoError(t, p.indexers.SetCaps(context.Background(), idxs[0].ID, store.Caps{}))

	s := &searchee.Searchee{Origin: searchee.OriginTorrent, Name: "Some.Show.S01E01"}
	err = p.RunSearch(context.Background(), []*searchee.Searchee{s})
	require.NoError(t, err)
	require.False(t, called)
}

func TestShouldRecheckFlagsPartialAndDiscImages(t *testing.T) {
	plain := &searchee.Searchee{Files: []searchee.File{{RelPath: "a.mkv", Size: 1}}}
	require.True(t, shouldRecheck(domain.VerdictMatchPartial, plain))
	require.False(t, shouldRecheck(domain.VerdictMatch, plain))

	disc := &searchee.Searchee{Files: []searchee.File{{RelPath: "disc.iso", Size: 1}}}
	require.True(t, shouldRecheck(domain.VerdictMatch, disc))
}

func TestItemIsNewComparesPubDateThenGUID(t *testing.T) {
	cursor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, itemIsNew(cursor.Add(time.Second), "g2", cursor, "g1"))
	require.False(t, itemIsNew(cursor, "g1", cursor, "g1"))
	require.True(t, itemIsNew(cursor, "g2", cursor, "g1"))
	require.False(t, itemIsNew(cursor.Add(-time.Second), "g2", cursor, "g1"))
}

func TestWriteArtifactRejectsMetafileWithoutRetainedSourceBytes(t *testing.T) {
	p := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	m := &metafile.Metafile{Name: "Some.Show.S01E01"}

	// A hand-built Metafile (as opposed to one produced by metafile.Decode)
	// has no retained raw *metainfo.MetaInfo, so Encode correctly refuses
	// rather than silently writing a torrent with the wrong hash.
	_, err := p.writeArtifact(m, "mytracker")
	require.Error(t, err)
}
