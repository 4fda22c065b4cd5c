// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package clientadapter

import (
	"context"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

// stub is the "save-only" adapter (§9 Design Notes): it reports no torrents
// under management and treats every Inject call as a no-op success, since
// action=save never calls Inject in the first place. It exists purely so
// Select never needs to return a nil Adapter.
type stub struct{}

// NewStub returns the default adapter used when no *RpcUrl is configured.
func NewStub() Adapter { return stub{} }

func (stub) IsTorrentComplete(ctx context.Context, infoHash string) (bool, error) {
	return false, nil
}

func (stub) GetAllTorrents(ctx context.Context) ([]Torrent, error) {
	return nil, nil
}

func (stub) GetDownloadDir(ctx context.Context, m *metafile.Metafile, onlyCompleted bool) (string, domain.SaveDirResult, error) {
	return "", domain.SaveDirNotFound, nil
}

func (stub) Inject(ctx context.Context, m *metafile.Metafile, s *searchee.Searchee, verdict domain.Verdict, dataPath string) (domain.InjectResult, error) {
	return domain.InjectSuccess, nil
}

func (stub) RecheckTorrent(ctx context.Context, infoHash string) error {
	return nil
}

func (stub) ValidateConfig(ctx context.Context) error {
	return nil
}
