// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package linker materializes a data-origin match on disk: given a
// candidate metafile and the searchee's root directory, it resolves each
// candidate file to its source path (by the name-and-size bijection the
// matcher already established) and creates a link tree under the
// configured link directory, preserving the candidate's internal layout.
// It uses a FileID check to detect an already-linked file, a
// FICLONE-based reflink helper for copy-on-write filesystems, and
// cross-filesystem detection for the hardlink-fails rule.
package linker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/pkg/fsutil"
	"github.com/xseedapp/xseed/pkg/hardlink"
	"github.com/xseedapp/xseed/pkg/pathutil"
	"github.com/xseedapp/xseed/pkg/reflinktree"
)

// ErrCrossFilesystem is returned when LinkHardlink is requested but source
// and destination live on different filesystems. Per §4.G there is no
// automatic fallback to another link type: the caller must surface this as
// an UNKNOWN_ERROR verdict for the user to remediate.
var ErrCrossFilesystem = fmt.Errorf("hardlink source and destination are on different filesystems")

// Options carries the runtime knobs that decide where and how links land.
type Options struct {
	LinkDir     string
	LinkType    domain.LinkType
	FlatLinking bool
	Tracker     string
}

// Linker creates link trees for data-origin matches.
type Linker struct{}

func New() *Linker {
	return &Linker{}
}

// Link builds the destination tree for candidate c, rooted at
// linkDir/[tracker/]c.Name, resolving each of c's files against s's root
// directory via a size bijection over s's remaining (unclaimed) files. s
// must be a DataSearchee (Origin == searchee.OriginData); other origins
// have no root directory to link from.
func (l *Linker) Link(s *searchee.Searchee, c *metafile.Metafile, opts Options) error {
	if s.Origin != searchee.OriginData {
		return fmt.Errorf("linker: searchee %q is not data-origin", s.Name)
	}
	if s.RootDir == "" {
		return fmt.Errorf("linker: searchee %q has no root directory", s.Name)
	}

	sources, err := resolveSources(s, c)
	if err != nil {
		return err
	}

	destRoot := destinationRoot(opts)

	for _, f := range c.Files {
		destPath := filepath.Join(destRoot, filepath.FromSlash(f.JoinedPath()))
		srcPath, ok := sources[f.JoinedPath()]
		if !ok {
			return fmt.Errorf("linker: no source resolved for candidate file %q", f.JoinedPath())
		}
		if err := linkOne(srcPath, destPath, opts.LinkType); err != nil {
			return fmt.Errorf("link %s -> %s: %w", srcPath, destPath, err)
		}
	}
	return nil
}

func destinationRoot(opts Options) string {
	if opts.FlatLinking || opts.Tracker == "" {
		return opts.LinkDir
	}
	return filepath.Join(opts.LinkDir, pathutil.SanitizePathSegment(opts.Tracker))
}

// resolveSources maps each candidate file's joined path to an absolute
// source path under the searchee's root, matched by a size bijection: every
// candidate file size must be satisfiable by exactly one remaining searchee
// file of the same size. This mirrors the matcher's RISKY-level acceptance
// rule, but here it must also produce a concrete assignment rather than
// just a verdict: a searchee file with the candidate file's own relative
// path and size is claimed first, and the remaining ties among files of
// equal size are broken by stable iteration order.
func resolveSources(s *searchee.Searchee, c *metafile.Metafile) (map[string]string, error) {
	remaining := make([]searchee.File, len(s.Files))
	copy(remaining, s.Files)
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].Size < remaining[j].Size })

	candFiles := make([]metafile.File, len(c.Files))
	copy(candFiles, c.Files)
	sort.SliceStable(candFiles, func(i, j int) bool { return candFiles[i].Length < candFiles[j].Length })

	used := make([]bool, len(remaining))
	out := make(map[string]string, len(candFiles))

	// Same relative path and size first, so equal-size files keep their names.
	for _, cf := range candFiles {
		for i, sf := range remaining {
			if !used[i] && sf.Size == cf.Length && filepath.ToSlash(sf.RelPath) == cf.JoinedPath() {
				used[i] = true
				out[cf.JoinedPath()] = filepath.Join(s.RootDir, sf.RelPath)
				break
			}
		}
	}

	for _, cf := range candFiles {
		if _, ok := out[cf.JoinedPath()]; ok {
			continue
		}
		idx := -1
		for i, sf := range remaining {
			if used[i] {
				continue
			}
			if sf.Size == cf.Length {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("linker: no unclaimed source file of size %d for %q", cf.Length, cf.JoinedPath())
		}
		used[idx] = true
		out[cf.JoinedPath()] = filepath.Join(s.RootDir, remaining[idx].RelPath)
	}
	return out, nil
}

func linkOne(src, dst string, linkType domain.LinkType) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	// A pre-existing destination is only skipped when it's confirmed to
	// already be src under the requested link type, so Link can be re-run
	// idempotently after a partial prior attempt without silently treating
	// a stale, unrelated file at dst as already linked.
	if dstInfo, err := os.Lstat(dst); err == nil {
		if alreadyLinked(src, dst, dstInfo, linkType) {
			return nil
		}
		return fmt.Errorf("destination %s already exists and is not linked to %s", dst, src)
	}

	switch linkType {
	case domain.LinkSymlink:
		return os.Symlink(src, dst)
	case domain.LinkReflink:
		return reflinktree.CloneFile(src, dst)
	case domain.LinkHardlink, "":
		return hardlinkOne(src, dst)
	default:
		return fmt.Errorf("unknown link type %q", linkType)
	}
}

// alreadyLinked reports whether dst is already the link Link would have
// created for src. A symlink is checked by target path; a hardlink by
// comparing the two paths' hardlink.FileID (device+inode on Unix, volume
// serial + file index on Windows), which survives dst having been moved or
// renamed after linking, unlike a path-string comparison. A reflink clone
// is a distinct inode by design, so there is no cheap way to confirm two
// reflinked files still share their original copy-on-write extents; dst's
// mere existence is treated as already-linked for that case, matching the
// pre-existing behavior this function replaces for the other two types.
func alreadyLinked(src, dst string, dstInfo os.FileInfo, linkType domain.LinkType) bool {
	switch linkType {
	case domain.LinkSymlink:
		target, err := os.Readlink(dst)
		return err == nil && target == src
	case domain.LinkReflink:
		return true
	default:
		srcInfo, err := os.Lstat(src)
		if err != nil {
			return false
		}
		srcID, _, err := hardlink.GetFileID(srcInfo, src)
		if err != nil || srcID.IsZero() {
			return false
		}
		dstID, _, err := hardlink.GetFileID(dstInfo, dst)
		if err != nil || dstID.IsZero() {
			return false
		}
		return srcID == dstID
	}
}

func hardlinkOne(src, dst string) error {
	// linkOne has already created filepath.Dir(dst) via MkdirAll, so this
	// check always has an existing destination-side path to stat.
	same, err := fsutil.SameFilesystem(src, filepath.Dir(dst))
	if err != nil {
		return err
	}
	if !same {
		return ErrCrossFilesystem
	}
	return os.Link(src, dst)
}
