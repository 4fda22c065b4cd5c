// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/xseedapp/xseed/internal/clientadapter"
	"github.com/xseedapp/xseed/internal/config"
	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/decisioncache"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/indexer"
	"github.com/xseedapp/xseed/internal/linker"
	"github.com/xseedapp/xseed/internal/metrics"
	"github.com/xseedapp/xseed/internal/notifier"
	"github.com/xseedapp/xseed/internal/pipeline"
	"github.com/xseedapp/xseed/internal/store"
)

// app bundles every component the CLI subcommands share once a config has
// been resolved and validated. It owns the database connection and must be
// closed by the caller.
type app struct {
	cfg config.Config

	db       *database.DB
	settings *store.SettingsStore
	indexers *store.IndexerStore
	times    *store.TimestampStore
	jobState *store.JobStateStore
	decision *store.DecisionStore
	cache    *decisioncache.Cache

	client   *indexer.Client
	registry *indexer.Registry

	linker   *linker.Linker
	adapter  clientadapter.Adapter
	notifier *notifier.Webhook
	metrics  *metrics.Registry

	pipeline *pipeline.Pipeline
}

// bootstrap opens the database, builds every store and service the
// pipeline needs, reconciles the configured --torznab URLs with the
// persisted indexer registry, and selects the active client adapter.
// Adapter selection connects eagerly, so a misconfigured *RpcUrl fails here
// (CONFIG_INVALID) rather than on the first injection attempt (§7).
func bootstrap(ctx context.Context, cfg config.Config) (*app, error) {
	dbPath := filepath.Join(cfg.DataDir, "xseed.db")
	db, err := database.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	settings := store.NewSettingsStore(db)
	encKey, err := settings.GetOrCreateEncryptionKey(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load encryption key: %w", err)
	}

	indexerStore, err := store.NewIndexerStore(db, encKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open indexer store: %w", err)
	}

	if err := reconcileIndexers(ctx, indexerStore, cfg.TorznabURLs); err != nil {
		db.Close()
		return nil, fmt.Errorf("reconcile configured indexers: %w", err)
	}

	times := store.NewTimestampStore(db)
	jobState := store.NewJobStateStore(db)
	decisionStore := store.NewDecisionStore(db)
	cache := decisioncache.New(decisionStore)

	limiter := indexer.NewRateLimiter(0)
	client := indexer.NewClient(limiter)
	searchTimeout, err := cfg.SearchTimeoutDuration()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("parse searchTimeout: %w", err)
	}
	registry := indexer.NewRegistry(indexerStore, client, searchTimeout)

	adapter, err := clientadapter.Select(ctx, &cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("select client adapter: %w", err)
	}

	l := linker.New()
	n := notifier.New(cfg.NotificationWebhookURL)

	snatchTimeout, err := cfg.SnatchTimeoutDuration()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("parse snatchTimeout: %w", err)
	}

	pcfg := pipeline.Config{
		OutputDir:           cfg.OutputDir,
		Action:              domain.Action(cfg.Action),
		Delay:               time.Duration(cfg.Delay) * time.Second,
		SearchLimit:         cfg.SearchLimit,
		SearchTimeout:       searchTimeout,
		SnatchTimeout:       snatchTimeout,
		ExcludeOlder:        time.Duration(cfg.ExcludeOlder) * time.Minute,
		ExcludeRecentSearch: time.Duration(cfg.ExcludeRecentSearch) * time.Minute,
		MaxIndexerConcurrency: cfg.MaxIndexerConcurrency,
		Policy:              matcherPolicy(cfg),
		LinkOptions: linker.Options{
			LinkDir:     cfg.LinkDir,
			LinkType:    domain.LinkType(cfg.LinkType),
			FlatLinking: cfg.FlatLinking,
		},
	}

	m := metrics.New()

	p := pipeline.New(pcfg, registry, client, indexerStore, times, cache, l)
	p.Adapter = clientadapter.PipelineAdapter{Adapter: adapter}
	p.Notifier = n
	p.Metrics = m

	return &app{
		cfg:      cfg,
		db:       db,
		settings: settings,
		indexers: indexerStore,
		times:    times,
		jobState: jobState,
		decision: decisionStore,
		cache:    cache,
		client:   client,
		registry: registry,
		linker:   l,
		adapter:  adapter,
		notifier: n,
		metrics:  m,
		pipeline: p,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// reconcileIndexers ensures every configured --torznab URL has a row in
// the registry, creating one named after the URL's host, with the apiKey
// split out of the URL's own apikey query parameter, when it's new, and
// leaving existing rows untouched (§SPEC_FULL startup
// validation: config drives which indexers are known, but never clobbers
// a row's health history).
func reconcileIndexers(ctx context.Context, idx *store.IndexerStore, urls []string) error {
	for _, raw := range urls {
		base, apiKey, err := splitIndexerURL(raw)
		if err != nil {
			return fmt.Errorf("parse --torznab url %q: %w", raw, err)
		}
		if _, err := idx.UpsertFromURL(ctx, indexerNameFromURL(base), base, apiKey); err != nil {
			return err
		}
	}
	return nil
}
