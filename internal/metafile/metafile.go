// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metafile decodes and encodes the binary torrent format and
// computes infohashes, built on anacrolix/torrent's metainfo package to
// load .torrent files and hash their info dictionaries.
package metafile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"
	"github.com/zeebo/bencode"
)

// File is one entry in a metafile's flat file list.
type File struct {
	// Path is the file's path segments relative to the torrent's root name.
	Path []string
	// Length is the file's size in bytes.
	Length int64
}

// JoinedPath returns the file's path joined with "/", matching the
// convention used throughout the searchee and matcher packages.
func (f File) JoinedPath() string {
	return strings.Join(f.Path, "/")
}

// Metafile is the decoded form of a .torrent file, retaining enough of the
// original structure to re-encode it byte-identically to how the parser
// observed the info dictionary, and to recompute the infohash at any time.
type Metafile struct {
	// InfoHash is the lowercase-hex SHA-1 of the info dictionary's exact
	// byte span as observed during parsing.
	InfoHash string
	Name     string
	Announce []string
	Files    []File
	// Private mirrors the info dictionary's optional "private" flag (BEP 27):
	// when set, the release is meant to stay off DHT/PEX, which the §4.F
	// private-tracker guard treats as a hint that a cross-seed match found
	// via an indexer the origin torrent didn't come from is suspect.
	Private bool
	// Source mirrors the info dictionary's optional "source" tag, the de
	// facto convention several tracker softwares use to stamp which tracker
	// produced a torrent even after re-announce; empty when absent.
	Source string
	// infoBytes is the raw, unmodified bencoded info dictionary, kept so
	// Encode can reproduce the source's exact hash.
	infoBytes []byte
	// raw is the entire decoded MetaInfo, kept for re-encoding and for
	// access to fields not exposed on Metafile (comment, creation date).
	raw *metainfo.MetaInfo
}

// Decode parses a .torrent file from r. It rejects a root that is not a
// dictionary, a missing info key, or a file list that mixes single-file and
// multi-file modes — anacrolix/torrent's own parser already enforces the
// bencode dictionary/info-key shape, so this function's job is mainly the
// multi-mode sanity check and the hash-consistency invariant in §3.
func Decode(r io.Reader) (*Metafile, error) {
	mi, err := metainfo.Load(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode metafile")
	}
	return fromMetaInfo(mi)
}

// DecodeFile loads a .torrent file from disk.
func DecodeFile(path string) (*Metafile, error) {
	mi, err := metainfo.LoadFromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "decode metafile %s", path)
	}
	return fromMetaInfo(mi)
}

func fromMetaInfo(mi *metainfo.MetaInfo) (*Metafile, error) {
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal info dictionary")
	}

	hasSingle := info.Length > 0
	hasMulti := len(info.Files) > 0
	if hasSingle && hasMulti {
		return nil, errors.New("metafile mixes single-file and multi-file info dictionaries")
	}
	if !hasSingle && !hasMulti {
		return nil, errors.New("metafile declares no files")
	}

	m := &Metafile{
		Name:      info.Name,
		infoBytes: mi.InfoBytes,
		raw:       mi,
	}
	m.Announce = announceList(mi)

	if hasSingle {
		m.Files = []File{{Path: []string{info.Name}, Length: info.Length}}
	} else {
		m.Files = make([]File, 0, len(info.Files))
		for _, f := range info.Files {
			m.Files = append(m.Files, File{Path: append([]string(nil), f.Path...), Length: f.Length})
		}
	}

	m.Private, m.Source = decodeInfoExtras(mi.InfoBytes)

	observed := mi.HashInfoBytes()
	m.InfoHash = observed.HexString()

	// Re-deriving the hash from the retained byte span must reproduce the
	// observed value (§3 invariant); metainfo.HashInfoBytes already hashes
	// exactly mi.InfoBytes, so this call is a tautological check that
	// guards against a future change accidentally re-bencoding info first.
	if rehash := metainfo.HashBytes(m.infoBytes); rehash.HexString() != m.InfoHash {
		return nil, errors.New("infohash mismatch on re-derivation: info byte span was not preserved")
	}

	return m, nil
}

// infoExtras is the subset of BEP 3/27 info-dictionary keys anacrolix's
// metainfo.Info doesn't itself expose; decoded separately from the raw
// bencode bytes rather than added to a fork of that type.
type infoExtras struct {
	Private int64  `bencode:"private"`
	Source  string `bencode:"source"`
}

// decodeInfoExtras re-decodes the retained info byte span to pull out the
// optional private/source keys. anacrolix/torrent's metainfo.Info doesn't
// surface either, so this is a second, narrow bencode.DecodeBytes pass over
// bytes already trusted and hash-verified, matching the decode-into-a-
// tagged-struct style used for every other bencoded payload in this
// system. A decode failure here never fails Decode/DecodeFile: a torrent
// with a malformed or absent private/source key is still a valid torrent,
// it just carries no opinion on either.
func decodeInfoExtras(infoBytes []byte) (private bool, source string) {
	var extras infoExtras
	if err := bencode.DecodeBytes(infoBytes, &extras); err != nil {
		return false, ""
	}
	return extras.Private != 0, extras.Source
}

func announceList(mi *metainfo.MetaInfo) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	add(mi.Announce)
	for _, tier := range mi.AnnounceList {
		for _, u := range tier {
			add(u)
		}
	}
	return out
}

// TotalSize sums the file list.
func (m *Metafile) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Length
	}
	return total
}

// Encode re-serializes the metafile, reusing the original info byte span so
// the encoded form's infohash matches m.InfoHash exactly.
func (m *Metafile) Encode(w io.Writer) error {
	if m.raw == nil {
		return errors.New("metafile has no retained source bytes to encode")
	}
	return m.raw.Write(w)
}

// EncodeToFile writes the metafile to path.
func (m *Metafile) EncodeToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create metafile %s", path)
	}
	defer f.Close()
	return m.Encode(f)
}

// DecodeBytes is a convenience wrapper for Decode over an in-memory buffer,
// used by the Torznab client when validating snatched bytes as a metafile
// before accepting them (§4.E: a non-metafile response is NO_DOWNLOAD_LINK).
func DecodeBytes(b []byte) (*Metafile, error) {
	return Decode(bytes.NewReader(b))
}

// Tree renders a deterministic, depth-first view of the file list for human
// inspection (the `tree` CLI operation). Directories are inferred from
// shared path prefixes among the flat file list.
func (m *Metafile) Tree() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	if m.Private {
		sb.WriteString(" [private")
		if m.Source != "" {
			fmt.Fprintf(&sb, ", source=%s", m.Source)
		}
		sb.WriteString("]")
	} else if m.Source != "" {
		fmt.Fprintf(&sb, " [source=%s]", m.Source)
	}
	sb.WriteString("\n")

	type node struct {
		name     string
		size     int64
		isFile   bool
		children map[string]*node
		order    []string
	}
	newNode := func(name string) *node {
		return &node{name: name, children: make(map[string]*node)}
	}
	root := newNode(m.Name)

	for _, f := range m.Files {
		cur := root
		for i, seg := range f.Path {
			child, ok := cur.children[seg]
			if !ok {
				child = newNode(seg)
				cur.children[seg] = child
				cur.order = append(cur.order, seg)
			}
			if i == len(f.Path)-1 {
				child.isFile = true
				child.size = f.Length
			}
			cur = child
		}
	}

	var walk func(n *node, prefix string)
	walk = func(n *node, prefix string) {
		order := append([]string(nil), n.order...)
		sort.Strings(order)
		for i, name := range order {
			child := n.children[name]
			connector := "├── "
			nextPrefix := prefix + "│   "
			if i == len(order)-1 {
				connector = "└── "
				nextPrefix = prefix + "    "
			}
			if child.isFile {
				fmt.Fprintf(&sb, "%s%s%s (%d bytes)\n", prefix, connector, child.name, child.size)
			} else {
				fmt.Fprintf(&sb, "%s%s%s/\n", prefix, connector, child.name)
				walk(child, nextPrefix)
			}
		}
	}
	walk(root, "")

	return sb.String()
}

// Diff compares two metafiles' flat file lists for the `diff` CLI operation,
// reporting files present only in a, only in b, or differing in length.
type DiffResult struct {
	OnlyInA  []File
	OnlyInB  []File
	SizeDiff []DiffSizeMismatch
}

type DiffSizeMismatch struct {
	Path     string
	LengthA  int64
	LengthB  int64
}

func Diff(a, b *Metafile) DiffResult {
	aByPath := make(map[string]File, len(a.Files))
	for _, f := range a.Files {
		aByPath[f.JoinedPath()] = f
	}
	bByPath := make(map[string]File, len(b.Files))
	for _, f := range b.Files {
		bByPath[f.JoinedPath()] = f
	}

	var result DiffResult
	for path, fa := range aByPath {
		fb, ok := bByPath[path]
		if !ok {
			result.OnlyInA = append(result.OnlyInA, fa)
			continue
		}
		if fa.Length != fb.Length {
			result.SizeDiff = append(result.SizeDiff, DiffSizeMismatch{Path: path, LengthA: fa.Length, LengthB: fb.Length})
		}
	}
	for path, fb := range bByPath {
		if _, ok := aByPath[path]; !ok {
			result.OnlyInB = append(result.OnlyInB, fb)
		}
	}
	sort.Slice(result.OnlyInA, func(i, j int) bool { return result.OnlyInA[i].JoinedPath() < result.OnlyInA[j].JoinedPath() })
	sort.Slice(result.OnlyInB, func(i, j int) bool { return result.OnlyInB[i].JoinedPath() < result.OnlyInB[j].JoinedPath() })
	sort.Slice(result.SizeDiff, func(i, j int) bool { return result.SizeDiff[i].Path < result.SizeDiff[j].Path })
	return result
}
