// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/clientadapter"
	"github.com/xseedapp/xseed/internal/config"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

// loadSearchees builds the full searchee set for one pass: every .torrent
// file directly under --torrent-dir, plus every leaf directory discovered
// by scanning --data-dirs (§4.B), minus any data-origin searchee whose
// files match an entry already under the active client's management
// (BuildFileIDIndex/CheckAlreadySeeding) — a data directory the client is
// already seeding under a different torrent doesn't need a new match pass.
// adapter may be nil (a cheap caller that doesn't care about the dedup), in
// which case the filter is skipped; the stub adapter reports no torrents, so
// with it nothing is filtered out.
func loadSearchees(ctx context.Context, cfg config.Config, adapter clientadapter.Adapter) ([]*searchee.Searchee, error) {
	var out []*searchee.Searchee

	if cfg.TorrentDir != "" {
		entries, err := os.ReadDir(cfg.TorrentDir)
		if err != nil {
			return nil, fmt.Errorf("read torrent-dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".torrent") {
				continue
			}
			path := filepath.Join(cfg.TorrentDir, e.Name())
			m, err := metafile.DecodeFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				continue
			}
			info, err := e.Info()
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				continue
			}
			out = append(out, searchee.FromMetafile(m, info.ModTime()))
		}
	}

	if len(cfg.DataDirs) > 0 {
		opts := searchee.Options{
			MaxDataDepth:          cfg.MaxDataDepth,
			BlockList:             cfg.BlockList,
			VideoExtensions:       cfg.VideoExtensions,
			IncludeNonVideos:      cfg.IncludeNonVideos,
			IncludeSingleEpisodes: cfg.IncludeSingleEpisodes,
		}
		data, err := searchee.ScanDataDirs(ctx, cfg.DataDirs, opts)
		if err != nil {
			return nil, fmt.Errorf("scan data-dirs: %w", err)
		}
		data = filterAlreadySeeding(ctx, adapter, data)
		out = append(out, data...)
	}

	return out, nil
}

// filterAlreadySeeding drops data-origin searchees whose files are already
// recognized, by file identity, as belonging to a torrent the client is
// actively managing. Index-build failures are logged and treated as "no
// index": data-origin searchees pass through unfiltered rather than being
// silently dropped on an adapter error.
func filterAlreadySeeding(ctx context.Context, adapter clientadapter.Adapter, data []*searchee.Searchee) []*searchee.Searchee {
	if adapter == nil || len(data) == 0 {
		return data
	}
	index, err := clientadapter.BuildFileIDIndex(ctx, adapter)
	if err != nil {
		log.Warn().Err(err).Msg("could not build file-identity index; skipping already-seeding filter")
		return data
	}

	out := make([]*searchee.Searchee, 0, len(data))
	for _, s := range data {
		if already, hash := searchee.CheckAlreadySeeding(s, index); already {
			log.Debug().Str("name", s.Name).Str("infoHash", hash).Msg("skipping data dir already seeding under another torrent")
			continue
		}
		out = append(out, s)
	}
	return out
}
