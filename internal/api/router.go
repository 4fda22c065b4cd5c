// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api implements the small HTTP admin surface: a go-chi router
// exposing search-on-demand, indexer inspection, and job status over a
// bearer-authenticated connection, with one chi sub-router under /api and
// JSON handlers returning a uniform response shape.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/indexer"
	"github.com/xseedapp/xseed/internal/metrics"
	"github.com/xseedapp/xseed/internal/pipeline"
	"github.com/xseedapp/xseed/internal/store"
)

// Server owns the admin HTTP listener and the dependencies its handlers
// read from; it never mutates pipeline config, only triggers passes.
type Server struct {
	httpServer *http.Server

	pipeline   *pipeline.Pipeline
	indexers   *store.IndexerStore
	registry   *indexer.Registry
	jobState   *store.JobStateStore
	settings   *store.SettingsStore
	torrentDir string
	metrics    *metrics.Registry
}

// Config carries everything New needs to build the router and listener.
type Config struct {
	Addr          string
	APIKey        string
	TorrentDir    string
	Pipeline      *pipeline.Pipeline
	Indexers      *store.IndexerStore
	Registry      *indexer.Registry
	JobState      *store.JobStateStore
	Settings      *store.SettingsStore
	Metrics       *metrics.Registry
}

func New(cfg Config) (*Server, error) {
	s := &Server{
		pipeline:   cfg.Pipeline,
		indexers:   cfg.Indexers,
		registry:   cfg.Registry,
		jobState:   cfg.JobState,
		settings:   cfg.Settings,
		torrentDir: cfg.TorrentDir,
		metrics:    cfg.Metrics,
	}

	r := chi.NewRouter()

	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, fmt.Errorf("build compression middleware: %w", err)
	}
	r.Use(compress)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	r.Use(c.Handler)

	r.Route("/api", func(api chi.Router) {
		api.Use(bearerAuth(cfg.APIKey, cfg.Settings))

		api.Post("/search", s.handleSearch)
		api.Get("/indexers", s.handleListIndexers)
		api.Post("/indexers/{id}/test", s.handleTestIndexer)
		api.Get("/jobs", s.handleListJobs)
	})

	// /metrics is deliberately outside the bearer-authenticated /api group,
	// matching the convention Prometheus scrape configs expect (no bearer
	// token support without an extra relabeling step).
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start runs the listener until the context is cancelled, then shuts it
// down gracefully (§5: in-flight requests get their own timeout to settle).
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("admin API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
