// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package searchee builds the uniform "thing we want to cross-seed" view
// from its three possible origins — a parsed torrent, a torrent client's
// reported entry, or a directory of data files. The directory walk is a
// depth-bounded, filterable construction rather than a single flat scan.
package searchee

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/pkg/hardlink"
)

// Origin tags which of the three sources produced a Searchee.
type Origin string

const (
	OriginTorrent Origin = "torrent"
	OriginClient  Origin = "client"
	OriginData    Origin = "data"
)

// File is one entry in a searchee's flat file list.
type File struct {
	// RelPath is relative to the searchee root and never traverses outside
	// it (§3 invariant).
	RelPath string
	Size    int64
}

// Searchee is the tagged union described in §3. Every field not relevant to
// Origin is left at its zero value.
type Searchee struct {
	Origin Origin

	Name      string
	Files     []File
	CreatedAt time.Time // zero if unknown

	// TorrentSearchee / ClientSearchee
	InfoHash string

	// TorrentSearchee: mirrors the originating torrent's info-dict private
	// flag and source tag (BEP 27 and the de facto source-tag convention),
	// used by the matcher's private-tracker guard. Both are zero-value for
	// a DataSearchee/ClientSearchee, which never carry a source metafile.
	Private bool
	Source  string

	// ClientSearchee
	ClientComplete bool
	ClientSavePath string

	// DataSearchee
	RootDir string
}

// TotalSize sums the file list.
func (s *Searchee) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}

// IsDiscImage reports whether any file carries one of the known disc-image
// extensions, forcing a post-inject recheck regardless of match strictness.
func (s *Searchee) IsDiscImage(discExtensions []string) bool {
	for _, f := range s.Files {
		ext := strings.ToLower(filepath.Ext(f.RelPath))
		for _, d := range discExtensions {
			if ext == d {
				return true
			}
		}
	}
	return false
}

// FromMetafile builds a TorrentSearchee from a decoded metafile (§4.B:
// name = info.name, files = info.files or the single-file fallback).
func FromMetafile(m *metafile.Metafile, createdAt time.Time) *Searchee {
	files := make([]File, 0, len(m.Files))
	for _, f := range m.Files {
		files = append(files, File{RelPath: f.JoinedPath(), Size: f.Length})
	}
	return &Searchee{
		Origin:    OriginTorrent,
		Name:      m.Name,
		Files:     files,
		CreatedAt: createdAt,
		InfoHash:  m.InfoHash,
		Private:   m.Private,
		Source:    m.Source,
	}
}

// ClientEntry is the shape a client adapter reports for one of its
// torrents; FromClientEntry turns it into a ClientSearchee.
type ClientEntry struct {
	InfoHash string
	Name     string
	Files    []File
	Complete bool
	SavePath string
	AddedAt  time.Time
}

// FromClientEntry builds a ClientSearchee.
func FromClientEntry(e ClientEntry) *Searchee {
	return &Searchee{
		Origin:         OriginClient,
		Name:           e.Name,
		Files:          e.Files,
		CreatedAt:      e.AddedAt,
		InfoHash:       e.InfoHash,
		ClientComplete: e.Complete,
		ClientSavePath: e.SavePath,
	}
}

// Options configures the directory-walk construction of DataSearchees.
type Options struct {
	MaxDataDepth          int
	BlockList             []string
	VideoExtensions       []string
	IncludeNonVideos      bool
	IncludeSingleEpisodes bool
}

var singleEpisodePattern = regexp.MustCompile(`(?i)\bs\d{1,2}e\d{1,3}\b`)
var packIndicatorPattern = regexp.MustCompile(`(?i)\b(s\d{1,2}|season\s?\d{1,2}|complete|pack)\b`)

// discLayoutMarkers identifies disc-layout directories (§4.B): a release
// root that contains one of these is treated as a single leaf searchee
// regardless of remaining walk depth, so the scan never recurses into a
// BDMV's STREAM/PLAYLIST internals and mis-names the searchee after the
// disc structure itself.
var discLayoutMarkers = map[string]struct{}{
	"bdmv":     {}, // Blu-ray
	"video_ts": {}, // DVD
	"audio_ts": {}, // DVD audio
}

// isDiscLayoutRoot reports whether dirPath directly contains a disc-layout
// marker directory.
func isDiscLayoutRoot(dirPath string) bool {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := discLayoutMarkers[strings.ToLower(entry.Name())]; ok {
			return true
		}
	}
	return false
}

// ScanDataDirs walks each root in dirs up to opts.MaxDataDepth levels,
// turning each leaf directory (or qualifying file at the root) into one
// DataSearchee. Hidden entries and names in opts.BlockList are excluded;
// symlinks are never followed (§4.B).
func ScanDataDirs(ctx context.Context, dirs []string, opts Options) ([]*Searchee, error) {
	var out []*Searchee
	for _, dir := range dirs {
		found, err := scanOneRoot(ctx, dir, opts)
		if err != nil {
			return out, fmt.Errorf("scan data dir %s: %w", dir, err)
		}
		out = append(out, found...)
	}
	return out, nil
}

func scanOneRoot(ctx context.Context, root string, opts Options) ([]*Searchee, error) {
	root = filepath.Clean(root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var out []*Searchee
	for _, entry := range entries {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if isHidden(entry.Name()) || isBlocked(entry.Name(), opts.BlockList) {
			continue
		}

		entryPath := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			s, err := walkDataDirAtDepth(ctx, entryPath, entry.Name(), opts, opts.MaxDataDepth)
			if err != nil || s == nil {
				continue
			}
			out = append(out, s...)
		} else if entry.Type()&fs.ModeSymlink == 0 && isQualifyingFile(entry.Name(), opts) {
			s, err := dataSearcheeForFile(entryPath)
			if err == nil && s != nil {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// walkDataDirAtDepth decides, at each directory level, whether to recurse
// further (depth remaining) or treat this directory as a leaf searchee.
func walkDataDirAtDepth(ctx context.Context, dirPath, name string, opts Options, depthRemaining int) ([]*Searchee, error) {
	if depthRemaining <= 0 || isDiscLayoutRoot(dirPath) {
		s, err := buildLeafSearchee(dirPath, name, opts)
		if err != nil || s == nil {
			return nil, err
		}
		return []*Searchee{s}, nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	hasSubdir := false
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			hasSubdir = true
			break
		}
	}
	if !hasSubdir {
		s, err := buildLeafSearchee(dirPath, name, opts)
		if err != nil || s == nil {
			return nil, err
		}
		return []*Searchee{s}, nil
	}

	var out []*Searchee
	for _, entry := range entries {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if isHidden(entry.Name()) || isBlocked(entry.Name(), opts.BlockList) {
			continue
		}
		childPath := filepath.Join(dirPath, entry.Name())
		if entry.IsDir() {
			children, err := walkDataDirAtDepth(ctx, childPath, entry.Name(), opts, depthRemaining-1)
			if err != nil {
				continue
			}
			out = append(out, children...)
		}
	}
	return out, nil
}

// buildLeafSearchee recursively collects descendant regular files (symlinks
// not followed) under dirPath into a single DataSearchee.
func buildLeafSearchee(dirPath, name string, opts Options) (*Searchee, error) {
	var files []File
	var newest time.Time

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}
		if isHidden(d.Name()) {
			if d.IsDir() && path != dirPath {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isBlocked(d.Name(), opts.BlockList) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		rel, err := filepath.Rel(dirPath, path)
		if err != nil {
			rel = d.Name()
		}
		files = append(files, File{RelPath: rel, Size: fi.Size()})
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	s := &Searchee{
		Origin:    OriginData,
		Name:      name,
		Files:     files,
		CreatedAt: newest,
		RootDir:   dirPath,
	}
	if !passesContentFilters(s, opts) {
		return nil, nil
	}
	return s, nil
}

func dataSearcheeForFile(path string) (*Searchee, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return &Searchee{
		Origin:    OriginData,
		Name:      name,
		Files:     []File{{RelPath: base, Size: fi.Size()}},
		CreatedAt: fi.ModTime(),
		RootDir:   filepath.Dir(path),
	}, nil
}

func isQualifyingFile(name string, opts Options) bool {
	if isHidden(name) {
		return false
	}
	if opts.IncludeNonVideos {
		return true
	}
	return hasVideoExtension(name, opts.VideoExtensions)
}

// passesContentFilters applies the non-video and single-episode filters.
func passesContentFilters(s *Searchee, opts Options) bool {
	if !opts.IncludeNonVideos {
		hasVideo := false
		for _, f := range s.Files {
			if hasVideoExtension(f.RelPath, opts.VideoExtensions) {
				hasVideo = true
				break
			}
		}
		if !hasVideo {
			return false
		}
	}

	if !opts.IncludeSingleEpisodes && isSingleEpisode(s.Name) {
		return false
	}

	return true
}

// isSingleEpisode reports whether a name matches an SxxExx pattern with no
// pack indication (season bundle, "complete", etc).
func isSingleEpisode(name string) bool {
	if !singleEpisodePattern.MatchString(name) {
		return false
	}
	return !packIndicatorPattern.MatchString(stripEpisodeToken(name))
}

func stripEpisodeToken(name string) string {
	return singleEpisodePattern.ReplaceAllString(name, "")
}

func hasVideoExtension(name string, videoExtensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isBlocked(name string, blockList []string) bool {
	for _, b := range blockList {
		if strings.EqualFold(name, b) {
			return true
		}
	}
	return false
}

// FileIDIndex maps an already-seeding file's hardlink.FileID bytes to the
// infohash that owns it, used by CheckAlreadySeeding to skip directories
// whose content the active client already has under management.
type FileIDIndex map[string]string

// CheckAlreadySeeding reports whether every file in a DataSearchee matches
// an entry in the index, meaning the active client is already seeding this
// exact content under a (possibly different) torrent.
func CheckAlreadySeeding(s *Searchee, index FileIDIndex) (bool, string) {
	if len(index) == 0 || len(s.Files) == 0 || s.Origin != OriginData {
		return false, ""
	}
	matched := 0
	var hash string
	for _, f := range s.Files {
		abs := filepath.Join(s.RootDir, f.RelPath)
		fi, err := os.Lstat(abs)
		if err != nil {
			continue
		}
		id, _, err := hardlink.GetFileID(fi, abs)
		if err != nil || id.IsZero() {
			continue
		}
		if h, ok := index[string(id.Bytes())]; ok {
			matched++
			if hash == "" {
				hash = h
			}
		}
	}
	return matched == len(s.Files) && matched > 0, hash
}
