// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pipeline wires the indexer client, matcher, decision cache,
// linker, client adapter, and notifier into the two entry points the
// scheduler (and CLI) drive: a bulk search pass over a batch of searchees,
// and an RSS scan across all indexers: one service struct holding every
// collaborator, one method per entry point, with each job's failure
// isolated from the rest of a pass.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/xseedapp/xseed/internal/decisioncache"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/indexer"
	"github.com/xseedapp/xseed/internal/linker"
	"github.com/xseedapp/xseed/internal/matcher"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/metrics"
	"github.com/xseedapp/xseed/internal/pkg/timeouts"
	"github.com/xseedapp/xseed/internal/scheduler"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/internal/store"
	"github.com/xseedapp/xseed/pkg/titles"
)

// ClientAdapter is the subset of §4.J's external contract the pipeline
// itself drives. A nil Pipeline.Adapter means "no client configured": the
// pipeline behaves as action=save regardless of config (§4.J: "the pass
// continues with action=save semantics" when the client is unreachable).
type ClientAdapter interface {
	ActiveInfoHashes(ctx context.Context) (map[string]struct{}, error)
	Inject(ctx context.Context, m *metafile.Metafile, s *searchee.Searchee, verdict domain.Verdict, dataPath string) (domain.InjectResult, error)
	RecheckTorrent(ctx context.Context, infoHash string) error
}

// Notifier fires the fire-and-forget webhook notification (§4.K).
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// Config carries the pipeline's runtime knobs, resolved from
// internal/config.Config by the caller.
type Config struct {
	OutputDir   string
	Action      domain.Action
	Delay       time.Duration
	SearchLimit int

	SearchTimeout time.Duration
	SnatchTimeout time.Duration

	// MaxIndexerConcurrency bounds how many indexers one searchee's search
	// fans out to at once; 0 means unlimited (spec.md §5 default).
	MaxIndexerConcurrency int

	ExcludeOlder        time.Duration
	ExcludeRecentSearch time.Duration

	Policy      matcher.Policy
	LinkOptions linker.Options
}

// Pipeline holds every collaborator the two entry points need.
type Pipeline struct {
	cfg Config

	registry *indexer.Registry
	client   *indexer.Client
	indexers *store.IndexerStore
	times    *store.TimestampStore
	cache    *decisioncache.Cache
	linker   *linker.Linker
	titles   *titles.Parser

	Adapter  ClientAdapter
	Notifier Notifier
	// Metrics is optional; a nil Metrics disables every counter/histogram
	// observation below rather than requiring a discard-everything stub.
	Metrics *metrics.Registry
}

func New(cfg Config, registry *indexer.Registry, client *indexer.Client, indexers *store.IndexerStore, times *store.TimestampStore, cache *decisioncache.Cache, l *linker.Linker) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		client:   client,
		indexers: indexers,
		times:    times,
		cache:    cache,
		linker:   l,
		titles:   titles.NewParser(),
	}
}

// RunSearch is the bulk-search entry point (§4.H): for each searchee not
// excluded by excludeOlder/excludeRecentSearch, query every eligible
// indexer and run the per-candidate flow. Searchees are drained by a
// bounded worker pool sized min(4, active indexers) (spec.md §5); within
// one searchee, indexer queries fan out concurrently bounded by
// --max-indexer-concurrency, but candidate matching/snatching for that
// searchee is serialized so the decision cache observes one writer at a
// time. One searchee's or one candidate's failure never aborts the rest
// of the pass.
func (p *Pipeline) RunSearch(ctx context.Context, searchees []*searchee.Searchee) error {
	if p.Metrics != nil {
		p.Metrics.PassesTotal.WithLabelValues("search").Inc()
	}
	log.Info().Str("run_id", scheduler.RunID(ctx)).Int("searchees", len(searchees)).Msg("search pass starting")

	idxs, err := p.registry.EligibleIndexers(ctx)
	if err != nil {
		return fmt.Errorf("list eligible indexers: %w", err)
	}

	limit := len(searchees)
	if p.cfg.SearchLimit > 0 && p.cfg.SearchLimit < limit {
		limit = p.cfg.SearchLimit
	}

	activeHashes, err := p.activeInfoHashes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not enumerate active infohashes; proceeding without them")
	}

	eligible := make([]*searchee.Searchee, 0, limit)
	for _, s := range searchees {
		if len(eligible) >= limit {
			break
		}
		if p.excludedByTimestamps(ctx, s, idxs) {
			continue
		}
		eligible = append(eligible, s)
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan *searchee.Searchee)

	g.Go(func() error {
		defer close(work)
		for _, s := range eligible {
			select {
			case work <- s:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < searcheeWorkerCount(len(idxs)); i++ {
		g.Go(func() error {
			for s := range work {
				if err := p.searchOneSearchee(gctx, s, idxs, activeHashes); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// searcheeWorkerCount bounds how many searchees are processed concurrently
// to min(4, active indexers) (spec.md §5): a registry with fewer indexers
// than the cap gets proportionally fewer workers.
func searcheeWorkerCount(activeIndexers int) int {
	switch {
	case activeIndexers <= 0:
		return 1
	case activeIndexers < 4:
		return activeIndexers
	default:
		return 4
	}
}

// indexerSearchResult pairs one indexer's search outcome with the indexer
// and decrypted API key processCandidate needs afterward.
type indexerSearchResult struct {
	idx        *store.Indexer
	apiKey     string
	candidates []indexer.Candidate
}

// searchOneSearchee fans candidate retrieval for s out across idxs
// concurrently (bounded by --max-indexer-concurrency, unlimited by
// default), then walks every indexer's candidates through the
// match/snatch flow serially so two indexers answering for the same
// searchee never race on the decision cache.
func (p *Pipeline) searchOneSearchee(ctx context.Context, s *searchee.Searchee, idxs []*store.Indexer, activeHashes map[string]struct{}) error {
	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.MaxIndexerConcurrency > 0 {
		g.SetLimit(p.cfg.MaxIndexerConcurrency)
	}

	results := make([]indexerSearchResult, len(idxs))
	for i, idx := range idxs {
		i, idx := i, idx
		g.Go(func() error {
			// Stagger request starts by the configured delay instead of
			// serializing the whole fan-out on it; per-indexer pacing
			// beyond that is the rate limiter's job (internal/indexer.
			// Client acquires it inside Search).
			if p.cfg.Delay > 0 && i > 0 {
				select {
				case <-time.After(time.Duration(i) * p.cfg.Delay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			candidates, apiKey, err := p.fetchFromIndexer(gctx, s, idx, len(idxs))
			if err != nil {
				log.Error().Err(err).Str("searchee", s.Name).Str("indexer", idx.Name).Msg("search pass failed for indexer")
				return nil
			}
			results[i] = indexerSearchResult{idx: idx, apiKey: apiKey, candidates: candidates}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if r.idx == nil {
			continue // this indexer's fetch failed; already logged.
		}
		for _, c := range r.candidates {
			if err := p.processCandidate(ctx, s, c, r.idx, r.apiKey, activeHashes); err != nil {
				log.Error().Err(err).Str("searchee", s.Name).Str("candidate", c.Title).Msg("candidate processing failed")
			}
		}
	}
	return nil
}

// fetchFromIndexer runs one indexer's Torznab query for s and records
// health/timestamp bookkeeping. It never touches the decision cache, so
// it is safe to call concurrently for sibling indexers of the same
// searchee.
func (p *Pipeline) fetchFromIndexer(ctx context.Context, s *searchee.Searchee, idx *store.Indexer, eligibleCount int) ([]indexer.Candidate, string, error) {
	apiKey, err := p.indexers.GetDecryptedAPIKey(idx)
	if err != nil {
		return nil, "", err
	}

	plan, ok := indexer.BuildPlan(s.Name, idx.Caps, p.titles)
	if !ok {
		return nil, apiKey, nil // indexer cannot serve any query kind this searchee needs.
	}

	// The per-request budget grows with the indexer fan-out
	// (timeouts.AdaptiveSearchTimeout), but never past the configured
	// ceiling.
	searchTimeout := timeouts.AdaptiveSearchTimeout(eligibleCount)
	if p.cfg.SearchTimeout > 0 && p.cfg.SearchTimeout < searchTimeout {
		searchTimeout = p.cfg.SearchTimeout
	}

	start := time.Now()
	candidates, status, err := p.client.Search(ctx, idx, apiKey, plan, 0, searchTimeout, indexer.PriorityInteractive)
	if p.Metrics != nil {
		p.Metrics.IndexerRequestDuration.WithLabelValues(idx.Name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		_ = p.registry.RecordSearchFailure(ctx, idx, status)
		return nil, apiKey, err
	}
	_ = p.registry.RecordSearchSuccess(ctx, idx)
	_ = p.times.Touch(ctx, s.Name, idx.ID)
	return candidates, apiKey, nil
}

// excludedByTimestamps applies --exclude-older and --exclude-recent-search
// against every eligible indexer's timestamp row for this searchee; the
// searchee is skipped only when ALL indexers agree it is excluded; a
// never-searched indexer is always eligible.
func (p *Pipeline) excludedByTimestamps(ctx context.Context, s *searchee.Searchee, idxs []*store.Indexer) bool {
	if p.cfg.ExcludeOlder <= 0 && p.cfg.ExcludeRecentSearch <= 0 {
		return false
	}
	now := time.Now()
	for _, idx := range idxs {
		ts, err := p.times.Get(ctx, s.Name, idx.ID)
		if err != nil {
			return false // never searched against this indexer: not excluded.
		}
		if p.cfg.ExcludeOlder > 0 && !ts.IsOlderThan(now.Add(-p.cfg.ExcludeOlder)) {
			return false
		}
		if p.cfg.ExcludeRecentSearch > 0 && !ts.WasRecentlySearched(now.Add(-p.cfg.ExcludeRecentSearch)) {
			return false
		}
	}
	return len(idxs) > 0
}

// processCandidate runs the eight-step flow of §4.H for one (searchee,
// candidate) pair.
func (p *Pipeline) processCandidate(ctx context.Context, s *searchee.Searchee, c indexer.Candidate, idx *store.Indexer, apiKey string, activeHashes map[string]struct{}) error {
	if p.Metrics != nil {
		p.Metrics.CandidatesEvaluatedTotal.Inc()
	}

	// (i) short-circuit on a cached terminal decision.
	if verdict, ok, err := p.cache.HasTerminalDecision(ctx, s.Name, c.GUID); err != nil {
		return err
	} else if ok {
		log.Debug().Str("searchee", s.Name).Str("candidate", c.GUID).Str("verdict", string(verdict)).Msg("skipping cached decision")
		return nil
	}

	// (ii) match against the RSS-advertised shape first; Torznab items
	// rarely carry a full file list, so this pass mostly screens for
	// SIZE_MISMATCH/BLOCKED_RELEASE/INFO_HASH_ALREADY_EXISTS before paying
	// for a snatch.
	provisional := &metafile.Metafile{InfoHash: c.InfoHash, Name: c.Title, Files: []metafile.File{{Path: []string{c.Title}, Length: c.Size}}}
	result := matcher.Match(s, provisional, activeHashes, p.cfg.Policy)
	if !result.Verdict.IsMatch() {
		p.recordVerdict(result.Verdict)
		return p.cache.Record(ctx, s.Name, c.GUID, idx.ID, result.Verdict, c.InfoHash, result.FuzzySizeFactor)
	}

	// (iii) snatch.
	m, err := p.client.Snatch(ctx, c.Link, apiKey, p.cfg.SnatchTimeout)
	if err != nil {
		p.recordVerdict(domain.VerdictNoDownloadLink)
		return p.cache.Record(ctx, s.Name, c.GUID, idx.ID, domain.VerdictNoDownloadLink, c.InfoHash, nil)
	}
	if p.Metrics != nil {
		p.Metrics.SnatchesTotal.Inc()
	}

	// (iv) re-match against the now-known full file list: a Torznab item's
	// advertised size/title can lie (§4.H).
	final := matcher.Match(s, m, activeHashes, p.cfg.Policy)

	// (v) persist the decision.
	p.recordVerdict(final.Verdict)
	if err := p.cache.Record(ctx, s.Name, c.GUID, idx.ID, final.Verdict, m.InfoHash, final.FuzzySizeFactor); err != nil {
		return err
	}
	if !final.Verdict.IsMatch() {
		return nil
	}

	// (vi) write the artifact.
	artifactPath, err := p.writeArtifact(m, idx.Name)
	if err != nil {
		return fmt.Errorf("write artifact for %s: %w", m.Name, err)
	}
	log.Info().Str("searchee", s.Name).Str("candidate", m.Name).Str("artifact", artifactPath).Str("verdict", string(final.Verdict)).Msg("recorded match")

	// (vii) optionally inject.
	var injectResult domain.InjectResult
	action := p.cfg.Action
	if p.Adapter == nil {
		action = domain.ActionSave
	}
	if action == domain.ActionInject {
		dataPath, linkErr := p.linkIfDataOrigin(s, m, idx.Name)
		if linkErr != nil {
			log.Error().Err(linkErr).Str("candidate", m.Name).Msg("linking failed; continuing with save semantics")
		} else {
			res, err := p.Adapter.Inject(ctx, m, s, final.Verdict, dataPath)
			if err != nil {
				log.Error().Err(err).Str("candidate", m.Name).Msg("inject failed; continuing with save semantics")
			} else {
				injectResult = res
				if p.Metrics != nil {
					p.Metrics.InjectionsTotal.WithLabelValues(string(res)).Inc()
				}
				if shouldRecheck(final.Verdict, s) {
					if err := p.Adapter.RecheckTorrent(ctx, m.InfoHash); err != nil {
						log.Error().Err(err).Str("infohash", m.InfoHash).Msg("post-inject recheck failed")
					}
				}
			}
		}
	}

	// (viii) notify.
	if p.Notifier != nil {
		p.Notifier.Notify(ctx, "Cross-seed match", fmt.Sprintf("%s matched %s (%s) via %s, inject=%s", s.Name, m.Name, final.Verdict, idx.Name, injectResult))
	}
	return nil
}

// linkIfDataOrigin creates the candidate's link tree when the searchee has
// a root directory on disk (§4.G is only defined for data-origin matches).
func (p *Pipeline) linkIfDataOrigin(s *searchee.Searchee, m *metafile.Metafile, tracker string) (string, error) {
	if s.Origin != searchee.OriginData || p.linker == nil {
		return "", nil
	}
	opts := p.cfg.LinkOptions
	opts.Tracker = tracker
	if err := p.linker.Link(s, m, opts); err != nil {
		return "", err
	}
	if opts.FlatLinking || opts.Tracker == "" {
		return filepath.Join(opts.LinkDir, m.Name), nil
	}
	return filepath.Join(opts.LinkDir, opts.Tracker, m.Name), nil
}

// writeArtifact persists the snatched metafile to outputDir/[tracker/]name
// per §6's "Persisted state" rule.
func (p *Pipeline) writeArtifact(m *metafile.Metafile, tracker string) (string, error) {
	dir := p.cfg.OutputDir
	if tracker != "" {
		dir = filepath.Join(dir, tracker)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, m.Name+".cross-seed.torrent")
	if err := m.EncodeToFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// shouldRecheck implements §4.J's post-inject recheck rule: MATCH_PARTIAL,
// or any disc-image searchee, regardless of verdict.
func shouldRecheck(verdict domain.Verdict, s *searchee.Searchee) bool {
	return verdict == domain.VerdictMatchPartial || s.IsDiscImage(domain.DiscImageExtensions)
}

// recordVerdict is a no-op when p.Metrics is nil, so every call site in
// processCandidate can call it unconditionally.
func (p *Pipeline) recordVerdict(v domain.Verdict) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.VerdictsTotal.WithLabelValues(string(v)).Inc()
}

func (p *Pipeline) activeInfoHashes(ctx context.Context) (map[string]struct{}, error) {
	if p.Adapter == nil {
		return nil, nil
	}
	return p.Adapter.ActiveInfoHashes(ctx)
}
