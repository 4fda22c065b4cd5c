// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xseedapp/xseed/internal/config"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/matcher"
)

// splitIndexerURL pulls an inline "apikey" query parameter (the shape
// `gen-config` writes and users commonly paste from an indexer's search
// page) out of a --torznab URL, returning the bare base URL and the key
// separately so the key is stored encrypted rather than embedded in the
// persisted URL column.
func splitIndexerURL(raw string) (base, apiKey string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}
	q := u.Query()
	apiKey = q.Get("apikey")
	q.Del("apikey")
	u.RawQuery = q.Encode()
	return u.String(), apiKey, nil
}

// indexerNameFromURL derives a stable display name from a Torznab base
// URL's host, used when registering a configured indexer that wasn't added
// through a name-carrying path.
func indexerNameFromURL(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// matcherPolicy translates the resolved Config into the matcher.Policy it
// drives (§4.F); Config.Validate has already rejected an unparseable mode.
func matcherPolicy(cfg config.Config) matcher.Policy {
	mode, ok := domain.ParseMatchMode(cfg.MatchMode)
	if !ok {
		mode = domain.MatchModeSafe
	}
	return matcher.Policy{
		Mode:                mode,
		FuzzySizeThreshold:  cfg.FuzzySizeThreshold,
		IgnorableExtensions: cfg.IgnorableExtensions,
		BlockList:           cfg.BlockList,
	}
}
