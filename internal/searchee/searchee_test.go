// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package searchee

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func baseOptions() Options {
	return Options{
		MaxDataDepth:     2,
		IncludeNonVideos: true,
	}
}

// TestScanDataDirsCollapsesDiscLayoutIntoOneSearchee exercises §4.B's disc
// rule: a default --max-data-depth=2 would otherwise recurse past
// Movie/BDMV into the STREAM leaf, mis-naming the searchee "STREAM" and
// losing the sibling .bup/.ifo files that live directly under BDMV.
func TestScanDataDirsCollapsesDiscLayoutIntoOneSearchee(t *testing.T) {
	root := t.TempDir()
	movieDir := filepath.Join(root, "Movie.2024.1080p.BluRay")
	bdmvDir := filepath.Join(movieDir, "BDMV")
	streamDir := filepath.Join(bdmvDir, "STREAM")

	writeFile(t, filepath.Join(bdmvDir, "index.bdmv"))
	writeFile(t, filepath.Join(bdmvDir, "MovieObject.bdmv"))
	writeFile(t, filepath.Join(streamDir, "00000.m2ts"))
	writeFile(t, filepath.Join(streamDir, "00000.bup"))

	out, err := ScanDataDirs(context.Background(), []string{root}, baseOptions())
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	require.Equal(t, "Movie.2024.1080p.BluRay", s.Name)
	require.Len(t, s.Files, 4)
}

// TestScanDataDirsRecursesPastNonDiscDirectories confirms ordinary
// directories (no BDMV/VIDEO_TS/AUDIO_TS marker) still follow the normal
// depth-bounded walk instead of being treated as a disc root.
func TestScanDataDirsRecursesPastNonDiscDirectories(t *testing.T) {
	root := t.TempDir()
	showDir := filepath.Join(root, "Show.S01")
	writeFile(t, filepath.Join(showDir, "Show.S01E01", "episode.mkv"))

	// The leaf's name parses as a single episode, so that filter is lifted.
	opts := baseOptions()
	opts.IncludeSingleEpisodes = true
	out, err := ScanDataDirs(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Show.S01E01", out[0].Name)
}

func TestIsDiscLayoutRootDetectsAllThreeMarkers(t *testing.T) {
	for _, marker := range []string{"BDMV", "VIDEO_TS", "AUDIO_TS"} {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, marker), 0o755))
		require.True(t, isDiscLayoutRoot(dir), "marker %s", marker)
	}

	plain := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(plain, "Extras"), 0o755))
	require.False(t, isDiscLayoutRoot(plain))
}
