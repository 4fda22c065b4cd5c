// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package titles caches rls-parsed release names. A single searchee name is
// re-parsed once per eligible indexer during query planning and again
// during match scoring; within one pass that is the same string parsed
// many times, so a short-lived cache turns an O(indexers) cost into O(1)
// per searchee.
package titles

import (
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/moistari/rls"
)

// Parser caches rls.ParseString results.
type Parser struct {
	cache *ttlcache.Cache[string, rls.Release]
}

// NewParser creates a title parser with a 5-minute TTL cache, long enough
// to cover one bulk-search pass over a large searchee batch.
func NewParser() *Parser {
	return &Parser{
		cache: ttlcache.New(ttlcache.Options[string, rls.Release]{}.SetDefaultTTL(5 * time.Minute)),
	}
}

// Parse returns the rls.Release for name, parsing and caching it on first
// use. A nil Parser parses uncached, so callers that don't need caching
// (tests, one-off calls) can pass a nil *Parser.
func (p *Parser) Parse(name string) rls.Release {
	if p == nil {
		return rls.ParseString(name)
	}
	if cached, found := p.cache.Get(name); found {
		return cached
	}
	release := rls.ParseString(name)
	p.cache.Set(name, release, ttlcache.DefaultTTL)
	return release
}
