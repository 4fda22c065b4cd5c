// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/xseedapp/xseed/internal/indexer"
	"github.com/xseedapp/xseed/internal/scheduler"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/internal/store"
)

// RunRSS is the RSS-scan entry point (§4.H): for each eligible indexer,
// issue the generic search query with no terms to get its newest items,
// then attempt matching each item against every local searchee. A per-
// indexer cursor (§SPEC_FULL Open Question a: last_guid/last_pub_date)
// stops the scan once previously-seen items are reached, so a scan never
// reprocesses the same item twice across runs. Indexers are scanned
// concurrently, bounded by --max-indexer-concurrency (spec.md §5's
// parallel-across-indexers fan-out); distinct indexers never share a
// (searchee, candidate GUID) pair, so their decision-cache writes never
// race each other.
func (p *Pipeline) RunRSS(ctx context.Context, searchees []*searchee.Searchee) error {
	if p.Metrics != nil {
		p.Metrics.PassesTotal.WithLabelValues("rss").Inc()
	}
	log.Info().Str("run_id", scheduler.RunID(ctx)).Int("searchees", len(searchees)).Msg("rss pass starting")

	idxs, err := p.registry.EligibleIndexers(ctx)
	if err != nil {
		return fmt.Errorf("list eligible indexers: %w", err)
	}

	activeHashes, err := p.activeInfoHashes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not enumerate active infohashes; proceeding without them")
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.MaxIndexerConcurrency > 0 {
		g.SetLimit(p.cfg.MaxIndexerConcurrency)
	}

	for _, idx := range idxs {
		idx := idx
		g.Go(func() error {
			if err := p.scanOneIndexer(gctx, idx, searchees, activeHashes); err != nil {
				log.Error().Err(err).Str("indexer", idx.Name).Msg("rss scan failed for indexer")
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) scanOneIndexer(ctx context.Context, idx *store.Indexer, searchees []*searchee.Searchee, activeHashes map[string]struct{}) error {
	apiKey, err := p.indexers.GetDecryptedAPIKey(idx)
	if err != nil {
		return err
	}

	lastGUID, lastPubDate, hasCursor, err := p.times.RSSCursor(ctx, idx.ID)
	if err != nil {
		return fmt.Errorf("load rss cursor: %w", err)
	}

	plan := indexer.Plan{Kind: indexer.KindSearch}
	start := time.Now()
	candidates, status, err := p.client.Search(ctx, idx, apiKey, plan, 0, p.cfg.SearchTimeout, indexer.PriorityRSS)
	if p.Metrics != nil {
		p.Metrics.IndexerRequestDuration.WithLabelValues(idx.Name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		_ = p.registry.RecordSearchFailure(ctx, idx, status)
		return err
	}
	_ = p.registry.RecordSearchSuccess(ctx, idx)

	newCount := 0
	for _, c := range candidates {
		if hasCursor && !itemIsNew(c.PubDate, c.GUID, lastPubDate, lastGUID) {
			continue
		}
		newCount++
		for _, s := range searchees {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := p.processCandidate(ctx, s, c, idx, apiKey, activeHashes); err != nil {
				log.Error().Err(err).Str("searchee", s.Name).Str("candidate", c.GUID).Msg("rss candidate processing failed")
			}
		}
	}

	if len(candidates) > 0 {
		newest := candidates[0]
		for _, c := range candidates[1:] {
			if c.PubDate.After(newest.PubDate) {
				newest = c
			}
		}
		if err := p.times.AdvanceRSSCursor(ctx, idx.ID, newest.GUID, newest.PubDate); err != nil {
			return fmt.Errorf("advance rss cursor: %w", err)
		}
	}

	log.Debug().Str("indexer", idx.Name).Int("new", newCount).Int("total", len(candidates)).Msg("rss scan complete")
	return nil
}

// itemIsNew implements the cursor rule: strictly newer pubDate, or an equal
// pubDate with a GUID different from the cursor's (same-second bursts).
func itemIsNew(pubDate time.Time, guid string, cursorPubDate time.Time, cursorGUID string) bool {
	if pubDate.After(cursorPubDate) {
		return true
	}
	return pubDate.Equal(cursorPubDate) && guid != cursorGUID
}
