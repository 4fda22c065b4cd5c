// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLinkHardlinkExactNameMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "episode.mkv"), "0123456789")

	s := &searchee.Searchee{
		Origin:  searchee.OriginData,
		Name:    "Some.Show.S01E01",
		RootDir: root,
		Files:   []searchee.File{{RelPath: "episode.mkv", Size: 10}},
	}
	c := &metafile.Metafile{
		Name:  "Some.Show.S01E01.OTHER",
		Files: []metafile.File{{Path: []string{"episode.mkv"}, Length: 10}},
	}

	linkDir := t.TempDir()
	l := New()
	err := l.Link(s, c, Options{LinkDir: linkDir, LinkType: domain.LinkHardlink, FlatLinking: true})
	require.NoError(t, err)

	dst := filepath.Join(linkDir, "episode.mkv")
	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.EqualValues(t, 10, info.Size())
}

func TestLinkSymlinkPreservesTrackerSubdirWhenNotFlat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mkv"), "hello-world")

	s := &searchee.Searchee{
		Origin:  searchee.OriginData,
		Name:    "Show",
		RootDir: root,
		Files:   []searchee.File{{RelPath: "a.mkv", Size: 11}},
	}
	c := &metafile.Metafile{
		Name:  "Show",
		Files: []metafile.File{{Path: []string{"renamed.mkv"}, Length: 11}},
	}

	linkDir := t.TempDir()
	l := New()
	err := l.Link(s, c, Options{LinkDir: linkDir, LinkType: domain.LinkSymlink, Tracker: "mytracker"})
	require.NoError(t, err)

	dst := filepath.Join(linkDir, "mytracker", "renamed.mkv")
	fi, err := os.Lstat(dst)
	require.NoError(t, err)
	require.True(t, fi.Mode()&os.ModeSymlink != 0)
}

func TestLinkRejectsNonDataOrigin(t *testing.T) {
	s := &searchee.Searchee{Origin: searchee.OriginTorrent, Name: "x"}
	c := &metafile.Metafile{Name: "x"}

	l := New()
	err := l.Link(s, c, Options{LinkDir: t.TempDir(), LinkType: domain.LinkHardlink})
	require.Error(t, err)
}

func TestResolveSourcesMatchesBySizeWhenNamesDiffer(t *testing.T) {
	s := &searchee.Searchee{
		Origin: searchee.OriginData,
		Files: []searchee.File{
			{RelPath: "A.mkv", Size: 1000},
			{RelPath: "B.mkv", Size: 500},
		},
		RootDir: "/data/show",
	}
	c := &metafile.Metafile{
		Files: []metafile.File{
			{Path: []string{"renamedA.mkv"}, Length: 1000},
			{Path: []string{"renamedB.mkv"}, Length: 500},
		},
	}

	sources, err := resolveSources(s, c)
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/data/show", "A.mkv"), sources["renamedA.mkv"])
	require.Equal(t, filepath.Join("/data/show", "B.mkv"), sources["renamedB.mkv"])
}

func TestResolveSourcesFailsWhenNoSizeMatch(t *testing.T) {
	s := &searchee.Searchee{
		Origin:  searchee.OriginData,
		Files:   []searchee.File{{RelPath: "A.mkv", Size: 1000}},
		RootDir: "/data/show",
	}
	c := &metafile.Metafile{
		Files: []metafile.File{{Path: []string{"B.mkv"}, Length: 2000}},
	}

	_, err := resolveSources(s, c)
	require.Error(t, err)
}

func TestLinkIsIdempotentOnReRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "episode.mkv"), "0123456789")

	s := &searchee.Searchee{
		Origin:  searchee.OriginData,
		Name:    "Show",
		RootDir: root,
		Files:   []searchee.File{{RelPath: "episode.mkv", Size: 10}},
	}
	c := &metafile.Metafile{
		Name:  "Show",
		Files: []metafile.File{{Path: []string{"episode.mkv"}, Length: 10}},
	}

	linkDir := t.TempDir()
	l := New()
	require.NoError(t, l.Link(s, c, Options{LinkDir: linkDir, LinkType: domain.LinkHardlink, FlatLinking: true}))
	require.NoError(t, l.Link(s, c, Options{LinkDir: linkDir, LinkType: domain.LinkHardlink, FlatLinking: true}))
}
