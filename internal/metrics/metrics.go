// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes the pipeline's and scheduler's counters on a
// dedicated prometheus.Registry, in the same push-counter style the
// teacher's internal/metrics package uses for its own services, scaled
// down from a pull-based custom collector (no external state to poll
// between scrapes here) to direct CounterVec/HistogramVec increments at
// the call sites that already observe the event.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every metric this process exposes plus the /metrics
// handler that serves them.
type Registry struct {
	registry *prometheus.Registry

	PassesTotal             *prometheus.CounterVec
	CandidatesEvaluatedTotal prometheus.Counter
	VerdictsTotal           *prometheus.CounterVec
	SnatchesTotal           prometheus.Counter
	InjectionsTotal         *prometheus.CounterVec
	IndexerRequestDuration  *prometheus.HistogramVec
}

// New builds a Registry with the Go/process collectors plus the domain
// counters, all registered eagerly so /metrics always lists them, even at
// zero, for dashboards that diff counters across scrapes.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Registry{
		registry: reg,
		PassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xseed_passes_total",
			Help: "Number of scheduler/CLI passes run, by kind (search, rss).",
		}, []string{"kind"}),
		CandidatesEvaluatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xseed_candidates_evaluated_total",
			Help: "Number of (searchee, candidate) pairs run through the matcher.",
		}),
		VerdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xseed_verdicts_total",
			Help: "Matcher verdicts recorded, by verdict kind.",
		}, []string{"verdict"}),
		SnatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xseed_snatches_total",
			Help: "Number of download-link snatch attempts that returned a metafile.",
		}),
		InjectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xseed_injections_total",
			Help: "Torrent client inject attempts, by result.",
		}, []string{"result"}),
		IndexerRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xseed_indexer_request_duration_seconds",
			Help:    "Per-indexer Torznab request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"indexer"}),
	}

	reg.MustRegister(m.PassesTotal, m.CandidatesEvaluatedTotal, m.VerdictsTotal, m.SnatchesTotal, m.InjectionsTotal, m.IndexerRequestDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
