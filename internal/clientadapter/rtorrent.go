// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package clientadapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

// rtorrentAdapter drives rTorrent's SCGI/XML-RPC interface with the minimal
// xmlrpcClient in xmlrpc.go. rTorrent has no notion of qBittorrent-style
// categories or tags; custom1 is the de facto convention ruTorrent/autodl
// tooling uses for a label, so duplicateCategories writes there instead.
type rtorrentAdapter struct {
	client              *xmlrpcClient
	duplicateCategories bool
}

func newRTorrentAdapter(ctx context.Context, rpcURL string, duplicateCategories bool) (Adapter, error) {
	host, username, password, err := splitRPCURL(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("rtorrent rpc url: %w", err)
	}
	a := &rtorrentAdapter{client: newXMLRPCClient(host, username, password), duplicateCategories: duplicateCategories}
	if err := a.ValidateConfig(ctx); err != nil {
		return nil, fmt.Errorf("rtorrent connect: %w", err)
	}
	return a, nil
}

func (a *rtorrentAdapter) IsTorrentComplete(ctx context.Context, infoHash string) (bool, error) {
	v, err := a.client.call(ctx, "d.complete", strings.ToUpper(infoHash))
	if err != nil {
		return false, err
	}
	return v.Int == 1, nil
}

func (a *rtorrentAdapter) GetAllTorrents(ctx context.Context) ([]Torrent, error) {
	v, err := a.client.call(ctx, "d.multicall2", "", "main", "d.hash=", "d.custom1=", "d.directory=")
	if err != nil {
		return nil, err
	}
	out := make([]Torrent, 0, len(v.Array))
	for _, row := range v.Array {
		if len(row.Array) < 1 {
			continue
		}
		t := Torrent{InfoHash: strings.ToLower(row.Array[0].String())}
		if len(row.Array) > 1 {
			t.Category = row.Array[1].String()
		}
		if len(row.Array) > 2 {
			t.SavePath = row.Array[2].String()
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *rtorrentAdapter) GetDownloadDir(ctx context.Context, m *metafile.Metafile, onlyCompleted bool) (string, domain.SaveDirResult, error) {
	hash := strings.ToUpper(m.InfoHash)
	complete, err := a.client.call(ctx, "d.complete", hash)
	if err != nil {
		if isRTorrentNoSuchHash(err) {
			return "", domain.SaveDirNotFound, nil
		}
		return "", domain.SaveDirUnknownError, err
	}
	if onlyCompleted && complete.Int != 1 {
		return "", domain.SaveDirTorrentNotComplete, nil
	}
	path, err := a.client.call(ctx, "d.directory", hash)
	if err != nil {
		return "", domain.SaveDirUnknownError, err
	}
	return path.String(), "", nil
}

// Inject loads m's raw bencoded bytes without autostart, points it at
// dataPath, then starts it: rTorrent has no skip_checking flag, so the hash
// check rTorrent runs on start is unavoidable, unlike the qBittorrent
// adapter's explicit opt-out.
func (a *rtorrentAdapter) Inject(ctx context.Context, m *metafile.Metafile, s *searchee.Searchee, verdict domain.Verdict, dataPath string) (domain.InjectResult, error) {
	hash := strings.ToUpper(m.InfoHash)
	if _, err := a.client.call(ctx, "d.name", hash); err == nil {
		return domain.InjectAlreadyExists, nil
	}

	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return domain.InjectFailure, fmt.Errorf("encode metafile: %w", err)
	}
	if _, err := a.client.call(ctx, "load.raw", "", buf.Bytes()); err != nil {
		return domain.InjectFailure, fmt.Errorf("load.raw: %w", err)
	}
	if _, err := a.client.call(ctx, "d.directory.set", hash, dataPath); err != nil {
		return domain.InjectFailure, fmt.Errorf("d.directory.set: %w", err)
	}
	if a.duplicateCategories {
		if _, err := a.client.call(ctx, "d.custom1.set", hash, s.Name); err != nil {
			log.Warn().Err(err).Str("infoHash", m.InfoHash).Msg("rtorrent: failed to set custom1 label")
		}
	}
	if _, err := a.client.call(ctx, "d.start", hash); err != nil {
		return domain.InjectFailure, fmt.Errorf("d.start: %w", err)
	}

	log.Info().Str("infoHash", m.InfoHash).Str("savePath", dataPath).Msg("injected torrent into rtorrent")
	return domain.InjectSuccess, nil
}

func (a *rtorrentAdapter) RecheckTorrent(ctx context.Context, infoHash string) error {
	_, err := a.client.call(ctx, "d.check_hash", strings.ToUpper(infoHash))
	return err
}

func (a *rtorrentAdapter) ValidateConfig(ctx context.Context) error {
	_, err := a.client.call(ctx, "system.client_version")
	return err
}

func isRTorrentNoSuchHash(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "could not find")
}
