// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package clientadapter implements the capability interface a downstream
// torrent client speaks to the pipeline (§4.J): completion checks, the
// active torrent inventory, injection, and post-inject recheck. Exactly one
// concrete adapter is active per process, chosen statically at startup by
// which RPC URL is configured. A stub ("save-only") implementation is the
// default when none is, so the pipeline never needs a nullable-client
// branch.
package clientadapter

import (
	"context"

	"github.com/xseedapp/xseed/internal/config"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/pkg/hashutil"
)

// Torrent is the shape GetAllTorrents reports for one torrent under the
// active client's management.
type Torrent struct {
	InfoHash string
	Category string
	Tags     []string
	Trackers [][]string
	// SavePath is the absolute directory the client reports the torrent's
	// data living under, used by BuildFileIDIndex to recognize data already
	// under the active client's management by file identity rather than by
	// infohash (§4.B).
	SavePath string
}

// Adapter is the full client-adapter contract. Concrete implementations
// speak to qBittorrent, rTorrent, Transmission, or Deluge; the stub
// implementation speaks to nothing.
type Adapter interface {
	IsTorrentComplete(ctx context.Context, infoHash string) (bool, error)
	GetAllTorrents(ctx context.Context) ([]Torrent, error)
	GetDownloadDir(ctx context.Context, m *metafile.Metafile, onlyCompleted bool) (string, domain.SaveDirResult, error)
	Inject(ctx context.Context, m *metafile.Metafile, s *searchee.Searchee, verdict domain.Verdict, dataPath string) (domain.InjectResult, error)
	RecheckTorrent(ctx context.Context, infoHash string) error
	ValidateConfig(ctx context.Context) error
}

// Select chooses the active adapter by which RPC URL is configured, first
// match wins in the order rtorrent, qbittorrent, transmission, deluge
// (§4.J). It connects/authenticates eagerly so a bad URL fails at startup
// (CONFIG_INVALID) rather than on the first injection attempt.
func Select(ctx context.Context, cfg *config.Config) (Adapter, error) {
	switch {
	case cfg.RTorrentRPCURL != "":
		return newRTorrentAdapter(ctx, cfg.RTorrentRPCURL, cfg.DuplicateCategories)
	case cfg.QbittorrentRPCURL != "":
		return newQbittorrentAdapter(ctx, cfg.QbittorrentRPCURL, cfg.DuplicateCategories)
	case cfg.TransmissionRPCURL != "":
		return newTransmissionAdapter(ctx, cfg.TransmissionRPCURL, cfg.DuplicateCategories)
	case cfg.DelugeRPCURL != "":
		return newDelugeAdapter(ctx, cfg.DelugeRPCURL, cfg.DuplicateCategories)
	default:
		return NewStub(), nil
	}
}

// PipelineAdapter narrows an Adapter down to the subset the search pipeline
// consumes (internal/pipeline.ClientAdapter), deriving ActiveInfoHashes from
// GetAllTorrents rather than requiring a sixth method on every
// implementation.
type PipelineAdapter struct {
	Adapter
}

// ActiveInfoHashes returns the lowercase infohash of every torrent the
// active client currently manages, used by the pipeline to short-circuit
// INFO_HASH_ALREADY_EXISTS (§4.F) without a per-candidate round trip.
func (p PipelineAdapter) ActiveInfoHashes(ctx context.Context) (map[string]struct{}, error) {
	torrents, err := p.GetAllTorrents(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(torrents))
	for _, t := range torrents {
		out[hashutil.Normalize(t.InfoHash)] = struct{}{}
	}
	return out, nil
}
