// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package clientadapter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/pkg/hardlink"
)

// BuildFileIDIndex walks every currently-managed torrent's save path and
// records each file's hardlink.FileID, so a data-origin searchee already
// seeding under a different torrent can be recognized by file identity
// rather than by infohash. Adapted from the way the save-path-plus-listing
// index is built per managed torrent; this adapter contract has no batch
// file-listing RPC, so the walk happens directly against each save path on
// disk instead of against a reported per-torrent file list.
func BuildFileIDIndex(ctx context.Context, a Adapter) (searchee.FileIDIndex, error) {
	torrents, err := a.GetAllTorrents(ctx)
	if err != nil {
		return nil, err
	}

	index := make(searchee.FileIDIndex)
	statErrors := 0
	for _, t := range torrents {
		if t.SavePath == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return index, ctx.Err()
		default:
		}
		statErrors += addSavePathToFileIDIndex(index, t.InfoHash, t.SavePath)
	}

	log.Debug().Int("torrents", len(torrents)).Int("fileIDs", len(index)).Int("statErrors", statErrors).
		Msg("clientadapter: built file-identity index")
	return index, nil
}

func addSavePathToFileIDIndex(index searchee.FileIDIndex, infoHash, savePath string) (statErrors int) {
	_ = filepath.WalkDir(savePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			statErrors++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		fi, err := os.Lstat(path)
		if err != nil {
			statErrors++
			return nil
		}
		fileID, _, err := hardlink.GetFileID(fi, path)
		if err != nil || fileID.IsZero() {
			return nil
		}
		index[string(fileID.Bytes())] = infoHash
		return nil
	})
	return statErrors
}
