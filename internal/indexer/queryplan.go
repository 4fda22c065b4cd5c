// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"strings"

	"github.com/moistari/rls"

	"github.com/xseedapp/xseed/internal/store"
	"github.com/xseedapp/xseed/pkg/releases"
	"github.com/xseedapp/xseed/pkg/titles"
)

// Kind is one of the Torznab query types §4.E can select.
type Kind string

const (
	KindTVSearch Kind = "tvsearch"
	KindMovie    Kind = "movie"
	KindMusic    Kind = "music"
	KindBook     Kind = "book"
	KindSearch   Kind = "search"
)

// requiredCap reports which of an indexer's advertised caps a Kind needs.
func (k Kind) requiredCap(caps store.Caps) bool {
	switch k {
	case KindTVSearch:
		return caps.TV
	case KindMovie:
		return caps.Movie
	case KindMusic:
		return caps.Music
	case KindBook:
		return caps.Book
	default:
		return caps.Search
	}
}

// Plan is a built-and-capability-checked Torznab query for one (searchee,
// indexer) pair.
type Plan struct {
	Kind   Kind
	Term   string
	IDCaps map[string]string
}

// BuildPlan selects a query kind from the searchee's parsed release (§4.E:
// "season/episode → tv; year token → movie; else generic") and rejects the
// plan if the indexer does not advertise that capability. parser may be nil,
// in which case the release is parsed uncached.
func BuildPlan(searcheeName string, caps store.Caps, parser *titles.Parser) (Plan, bool) {
	release := parser.Parse(searcheeName)
	content := releases.DetermineContentType(&release)

	kind := KindSearch
	switch content.ContentType {
	case "tv":
		kind = KindTVSearch
	case "movie":
		kind = KindMovie
	case "music", "audiobook":
		kind = KindMusic
	case "book", "comic":
		kind = KindBook
	}

	if !kind.requiredCap(caps) {
		if caps.Search {
			kind = KindSearch
		} else {
			return Plan{}, false
		}
	}

	term := normalizeTitle(release, searcheeName)
	return Plan{Kind: kind, Term: term}, true
}

// normalizeTitle prefers the parsed release's title (strips group tags,
// resolution, codec markers) and falls back to the raw searchee name.
func normalizeTitle(release rls.Release, fallback string) string {
	title := strings.TrimSpace(release.Title)
	if title == "" {
		title = fallback
	}
	return strings.Join(strings.Fields(title), " ")
}
