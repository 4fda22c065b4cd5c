// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metafile

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSingleFileTorrent assembles valid bencode for a single-file torrent
// by hand, using len() for every length prefix so the bytes are correct by
// construction rather than by manual counting.
func buildSingleFileTorrent(announce, name string, length int64) []byte {
	pieces := strings.Repeat("A", 20)
	info := fmt.Sprintf("d6:lengthi%de4:name%d:%s12:piece lengthi16384e6:pieces20:%se",
		length, len(name), name, pieces)
	full := fmt.Sprintf("d8:announce%d:%s4:info%se", len(announce), announce, info)
	return []byte(full)
}

// buildMultiFileTorrent assembles a multi-file torrent with the given
// {path, length} entries under root name.
func buildMultiFileTorrent(announce, name string, files []File) []byte {
	var filesList strings.Builder
	filesList.WriteString("l")
	for _, f := range files {
		var pathList strings.Builder
		pathList.WriteString("l")
		for _, seg := range f.Path {
			fmt.Fprintf(&pathList, "%d:%s", len(seg), seg)
		}
		pathList.WriteString("e")
		fmt.Fprintf(&filesList, "d6:lengthi%de4:path%se", f.Length, pathList.String())
	}
	filesList.WriteString("e")

	pieces := strings.Repeat("B", 40) // two pieces worth
	info := fmt.Sprintf("d5:files%s4:name%d:%s12:piece lengthi16384e6:pieces40:%se",
		filesList.String(), len(name), name, pieces)
	full := fmt.Sprintf("d8:announce%d:%s4:info%se", len(announce), announce, info)
	return []byte(full)
}

// buildPrivateSingleFileTorrent is buildSingleFileTorrent plus the optional
// private flag and source tag, bencode dictionary keys kept in the sorted
// order BEP 3 requires.
func buildPrivateSingleFileTorrent(announce, name string, length int64, private bool, source string) []byte {
	pieces := strings.Repeat("A", 20)
	privateFlag := 0
	if private {
		privateFlag = 1
	}
	info := fmt.Sprintf("d6:lengthi%de4:name%d:%s12:piece lengthi16384e6:pieces20:%s7:privatei%de6:source%d:%se",
		length, len(name), name, pieces, privateFlag, len(source), source)
	full := fmt.Sprintf("d8:announce%d:%s4:info%se", len(announce), announce, info)
	return []byte(full)
}

func TestDecodeSingleFile(t *testing.T) {
	raw := buildSingleFileTorrent("http://tracker.example/announce", "movie.mkv", 1_000_000_000)

	m, err := DecodeBytes(raw)
	require.NoError(t, err)
	require.Equal(t, "movie.mkv", m.Name)
	require.Len(t, m.Files, 1)
	require.Equal(t, []string{"movie.mkv"}, m.Files[0].Path)
	require.EqualValues(t, 1_000_000_000, m.Files[0].Length)
	require.EqualValues(t, 1_000_000_000, m.TotalSize())
	require.Len(t, m.InfoHash, 40)
	require.Equal(t, []string{"http://tracker.example/announce"}, m.Announce)
	require.False(t, m.Private)
	require.Empty(t, m.Source)
}

func TestDecodePrivateFlagAndSourceTag(t *testing.T) {
	raw := buildPrivateSingleFileTorrent("http://tracker.example/announce", "movie.mkv", 1_000_000_000, true, "PTP")

	m, err := DecodeBytes(raw)
	require.NoError(t, err)
	require.True(t, m.Private)
	require.Equal(t, "PTP", m.Source)
}

func TestDecodeAbsentPrivateFlagDefaultsFalse(t *testing.T) {
	raw := buildPrivateSingleFileTorrent("http://tracker.example/announce", "movie.mkv", 1_000_000_000, false, "")

	m, err := DecodeBytes(raw)
	require.NoError(t, err)
	require.False(t, m.Private)
	require.Empty(t, m.Source)
}

func TestDecodeMultiFile(t *testing.T) {
	files := []File{
		{Path: []string{"disc1", "a.mkv"}, Length: 700_000_000},
		{Path: []string{"disc1", "a.nfo"}, Length: 2048},
	}
	raw := buildMultiFileTorrent("http://tracker.example/announce", "show.s01", files)

	m, err := DecodeBytes(raw)
	require.NoError(t, err)
	require.Equal(t, "show.s01", m.Name)
	require.Len(t, m.Files, 2)
	require.EqualValues(t, 700_000_000+2048, m.TotalSize())
}

func TestEncodeDecodeRoundTripPreservesInfoHash(t *testing.T) {
	raw := buildSingleFileTorrent("http://tracker.example/announce", "album.flac", 50_000_000)

	m, err := DecodeBytes(raw)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	m2, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)

	require.Equal(t, m.InfoHash, m2.InfoHash)
	require.Equal(t, m.Name, m2.Name)
	require.Equal(t, m.Files, m2.Files)
}

func TestTreeRendersDeterministically(t *testing.T) {
	files := []File{
		{Path: []string{"b.mkv"}, Length: 10},
		{Path: []string{"a.mkv"}, Length: 20},
	}
	raw := buildMultiFileTorrent("http://tracker.example/announce", "pack", files)
	m, err := DecodeBytes(raw)
	require.NoError(t, err)

	tree := m.Tree()
	// a.mkv sorts before b.mkv regardless of input order.
	require.Less(t, strings.Index(tree, "a.mkv"), strings.Index(tree, "b.mkv"))
}

func TestDiffDetectsSizeMismatchAndExclusiveFiles(t *testing.T) {
	a := &Metafile{Name: "a", Files: []File{
		{Path: []string{"x.mkv"}, Length: 100},
		{Path: []string{"only-a.nfo"}, Length: 5},
	}}
	b := &Metafile{Name: "b", Files: []File{
		{Path: []string{"x.mkv"}, Length: 200},
		{Path: []string{"only-b.nfo"}, Length: 5},
	}}

	d := Diff(a, b)
	require.Len(t, d.OnlyInA, 1)
	require.Equal(t, "only-a.nfo", d.OnlyInA[0].JoinedPath())
	require.Len(t, d.OnlyInB, 1)
	require.Equal(t, "only-b.nfo", d.OnlyInB[0].JoinedPath())
	require.Len(t, d.SizeDiff, 1)
	require.Equal(t, "x.mkv", d.SizeDiff[0].Path)
}

func TestRejectsMissingInfo(t *testing.T) {
	_, err := DecodeBytes([]byte("d8:announce3:fooe"))
	require.Error(t, err)
}
