// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package matcher implements the core decision procedure: given a searchee
// and a candidate metafile, decide MATCH / MATCH_SIZE_ONLY / MATCH_PARTIAL or
// reject with a reason, built against the searchee/metafile types this
// system uses, and narrowed from a release-aware fuzzy acceptance scheme
// into three strict policy levels — the release-key heuristics below are
// applied only as tie-breaks inside an already-passing policy check, never
// as a way to accept a verdict the policy level would otherwise reject.
package matcher

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/moistari/rls"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/pkg/hashutil"
	"github.com/xseedapp/xseed/pkg/pathcmp"
	"github.com/xseedapp/xseed/pkg/releases"
	"github.com/xseedapp/xseed/pkg/stringutils"
)

// Policy carries the runtime knobs the matcher checks against (§4.F).
type Policy struct {
	Mode                domain.MatchMode
	FuzzySizeThreshold   float64
	IgnorableExtensions  []string
	BlockList            []string
}

// Result is the matcher's verdict plus any auxiliary data the pipeline
// needs to persist or act on.
type Result struct {
	Verdict         domain.Verdict
	FuzzySizeFactor *float64
	// NeedsRecheck flags a post-inject recheck per §4.F/§4.J: MATCH_PARTIAL
	// results, or any disc-image searchee, regardless of verdict.
	NeedsRecheck bool
}

// Match runs the ordered check procedure of §4.F. activeInfoHashes is the
// set of infohashes the active client is already seeding, consulted for the
// INFO_HASH_ALREADY_EXISTS check alongside the searchee's own infohash.
func Match(s *searchee.Searchee, c *metafile.Metafile, activeInfoHashes map[string]struct{}, policy Policy) Result {
	// 1. INFO_HASH_ALREADY_EXISTS
	candidateHash := hashutil.Normalize(c.InfoHash)
	if s.InfoHash != "" && hashutil.Normalize(s.InfoHash) == candidateHash {
		return Result{Verdict: domain.VerdictInfoHashAlreadyExist}
	}
	if _, ok := activeInfoHashes[candidateHash]; ok {
		return Result{Verdict: domain.VerdictInfoHashAlreadyExist}
	}

	// 2. BLOCKED_RELEASE
	if hitsBlockList(c, policy.BlockList) {
		return Result{Verdict: domain.VerdictBlockedRelease}
	}

	// 3. PRIVATE_TRACKER_MISMATCH: a private torrent's swarm is scoped to
	// the tracker that issued it (BEP 27); a candidate stamped with a
	// different, non-empty source tag came from a different tracker's
	// swarm and can never be joined by re-announcing the searchee's
	// private torrent, regardless of how well the file tree matches.
	if s.Private && s.Source != "" && c.Source != "" && !strings.EqualFold(s.Source, c.Source) {
		return Result{Verdict: domain.VerdictPrivateTrackerMismatch}
	}

	// 4. SIZE_MISMATCH
	sTotal := s.TotalSize()
	cTotal := c.TotalSize()
	factor := sizeDeltaFactor(sTotal, cTotal)
	if !withinFuzzyThreshold(factor, policy.FuzzySizeThreshold) {
		return Result{Verdict: domain.VerdictSizeMismatch, FuzzySizeFactor: &factor}
	}

	// 5/6. FILE_TREE_MISMATCH or a permitting verdict, per policy level.
	verdict, ok := evaluateFileTree(s, c, policy)
	if !ok {
		return Result{Verdict: domain.VerdictFileTreeMismatch, FuzzySizeFactor: &factor}
	}

	needsRecheck := verdict == domain.VerdictMatchPartial || s.IsDiscImage(domain.DiscImageExtensions)
	return Result{Verdict: verdict, FuzzySizeFactor: &factor, NeedsRecheck: needsRecheck}
}

func hitsBlockList(c *metafile.Metafile, blockList []string) bool {
	if len(blockList) == 0 {
		return false
	}
	title := stringutils.NormalizeForMatching(c.Name)
	hash := hashutil.Normalize(c.InfoHash)
	for _, entry := range blockList {
		normEntry := stringutils.NormalizeForMatching(entry)
		if normEntry == "" {
			continue
		}
		if normEntry == hash || strings.Contains(title, normEntry) {
			return true
		}
	}
	return false
}

func sizeDeltaFactor(a, b int64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	max := a
	if b > max {
		max = b
	}
	delta := a - b
	if delta < 0 {
		delta = -delta
	}
	return float64(delta) / float64(max)
}

func withinFuzzyThreshold(factor, threshold float64) bool {
	return factor <= threshold
}

// evaluateFileTree implements the SAFE/RISKY/PARTIAL ladder (§4.F). Returns
// ok=false when even the configured policy's loosest accepted shape fails.
func evaluateFileTree(s *searchee.Searchee, c *metafile.Metafile, policy Policy) (domain.Verdict, bool) {
	sFiles := toFileSet(s)
	cFiles := fromMetafileFiles(c)

	if exactPathMatch(sFiles, cFiles) {
		return domain.VerdictMatch, true
	}
	if policy.Mode == domain.MatchModeSafe {
		return "", false
	}

	if sizeBijection(sFiles, cFiles) && !releaseKeysConflict(s.Name, c.Name) {
		return domain.VerdictMatchSizeOnly, true
	}
	if policy.Mode == domain.MatchModeRisky {
		return "", false
	}

	// PARTIAL: ignorable files may exist on only one side; the remaining
	// (video) file sets must satisfy RISKY-level size bijection.
	sCore := stripIgnorable(sFiles, policy.IgnorableExtensions)
	cCore := stripIgnorable(cFiles, policy.IgnorableExtensions)
	if len(sCore) > 0 && len(cCore) > 0 && sizeBijection(sCore, cCore) && !releaseKeysConflict(s.Name, c.Name) {
		return domain.VerdictMatchPartial, true
	}

	return "", false
}

// releaseKeysConflict guards the RISKY/PARTIAL tiers against a size-only
// coincidence between two different episodes or air dates, the failure mode
// anime releases hit most often since their per-file names rarely carry
// season/episode tokens. The searchee's parse is enriched from the
// candidate's torrent-level release first, since a terse per-episode
// filename is exactly the case EnrichFromTorrent exists for. It can only
// reject a tier that sizeBijection already accepted, never accept one that
// failed it.
func releaseKeysConflict(searcheeName, candidateName string) bool {
	candidateRelease := rls.ParseString(candidateName)
	searcheeRelease := EnrichFromTorrent(rls.ParseString(searcheeName), candidateRelease)

	sKey := MakeReleaseKey(searcheeRelease)
	cKey := MakeReleaseKey(candidateRelease)
	if sKey != (ReleaseKey{}) && cKey != (ReleaseKey{}) && sKey != cKey {
		return true
	}

	return releaseVariantConflicts(searcheeRelease, candidateRelease)
}

// releaseVariantConflicts catches the case releaseKeysConflict's series/
// episode/date key can't: two releases with no parseable series/episode/date
// at all (so MakeReleaseKey returns the zero value on both sides) but a
// source or codec tag that plainly disagrees, e.g. a WEB-DL rip and a BluRay
// remux landing on the same byte count by coincidence. Source/codec aliasing
// goes through the same normalization releases.NormalizeSource/
// NormalizeVideoCodec apply everywhere else release metadata is compared, so
// "WEB-DL" and "WEBDL" are never flagged as a conflict with each other.
func releaseVariantConflicts(searcheeRelease, candidateRelease rls.Release) bool {
	sSource := releases.NormalizeSource(searcheeRelease.Source)
	cSource := releases.NormalizeSource(candidateRelease.Source)
	if sSource != "" && cSource != "" && sSource != "WEB" && cSource != "WEB" && sSource != cSource {
		return true
	}

	sCodec := releases.JoinNormalizedCodecSlice(searcheeRelease.Codec)
	cCodec := releases.JoinNormalizedCodecSlice(candidateRelease.Codec)
	return sCodec != "" && cCodec != "" && sCodec != cCodec
}

type fileEntry struct {
	path string
	size int64
}

func toFileSet(s *searchee.Searchee) []fileEntry {
	out := make([]fileEntry, 0, len(s.Files))
	for _, f := range s.Files {
		out = append(out, fileEntry{path: normalizePath(f.RelPath), size: f.Size})
	}
	return out
}

func fromMetafileFiles(c *metafile.Metafile) []fileEntry {
	out := make([]fileEntry, 0, len(c.Files))
	for _, f := range c.Files {
		out = append(out, fileEntry{path: normalizePath(f.JoinedPath()), size: f.Length})
	}
	return out
}

// normalizePath lowercases a relative path for comparison; both Searchee and
// Metafile file lists are already rooted relative to their own top-level
// name, so no further stripping is needed to satisfy "up to candidate's
// top-level directory renaming" (§4.F) — only the root name itself differs
// between the two, and that name is never part of either list.
func normalizePath(p string) string {
	return pathcmp.NormalizePathFold(filepath.ToSlash(p))
}

func exactPathMatch(a, b []fileEntry) bool {
	if len(a) != len(b) {
		return false
	}
	bySet := make(map[string]int64, len(b))
	for _, f := range b {
		bySet[f.path] = f.size
	}
	for _, f := range a {
		size, ok := bySet[f.path]
		if !ok || size != f.size {
			return false
		}
	}
	return true
}

// sizeBijection reports whether a and b have equal file counts and their
// size multisets match exactly (RISKY-level: "every candidate file matches
// a searchee file by length, ignoring path").
func sizeBijection(a, b []fileEntry) bool {
	if len(a) != len(b) {
		return false
	}
	sizesA := sizesOf(a)
	sizesB := sizesOf(b)
	sort.Slice(sizesA, func(i, j int) bool { return sizesA[i] < sizesA[j] })
	sort.Slice(sizesB, func(i, j int) bool { return sizesB[i] < sizesB[j] })
	for i := range sizesA {
		if sizesA[i] != sizesB[i] {
			return false
		}
	}
	return true
}

func sizesOf(files []fileEntry) []int64 {
	out := make([]int64, len(files))
	for i, f := range files {
		out[i] = f.size
	}
	return out
}

func stripIgnorable(files []fileEntry, ignorable []string) []fileEntry {
	out := make([]fileEntry, 0, len(files))
	for _, f := range files {
		if isIgnorableExtension(f.path, ignorable) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isIgnorableExtension(path string, ignorable []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, i := range ignorable {
		if strings.ToLower(i) == ext {
			return true
		}
	}
	return false
}

// ReleaseKey is a comparable struct for cross-release
// identity when a filename alone is ambiguous (anime-style releases with no
// season/episode tokens). Match consults it through releaseKeysConflict: a
// RISKY or PARTIAL file-tree acceptance becomes FILE_TREE_MISMATCH when the
// searchee's and candidate's keys name different releases.
type ReleaseKey struct {
	Series, Episode int
	Year, Month, Day int
}

// MakeReleaseKey derives a comparable identity from a parsed release,
// following makeReleaseKey's TV/date/year precedence.
func MakeReleaseKey(r rls.Release) ReleaseKey {
	switch {
	case r.Series > 0 && r.Episode > 0:
		return ReleaseKey{Series: r.Series, Episode: r.Episode}
	case r.Series > 0:
		return ReleaseKey{Series: r.Series}
	case r.Year > 0 && r.Month > 0 && r.Day > 0:
		return ReleaseKey{Year: r.Year, Month: r.Month, Day: r.Day}
	case r.Year > 0:
		return ReleaseKey{Year: r.Year}
	default:
		return ReleaseKey{}
	}
}

// EnrichFromTorrent fills a file-level release's missing group/resolution/
// codec/source/HDR/series/year from the containing torrent's own parsed
// release, avoiding false SIZE/FILE_TREE mismatches caused by terse per-file
// names inside an otherwise well-named release.
func EnrichFromTorrent(fileRelease, torrentRelease rls.Release) rls.Release {
	enriched := fileRelease
	if enriched.Group == "" {
		enriched.Group = torrentRelease.Group
	}
	if enriched.Resolution == "" {
		enriched.Resolution = torrentRelease.Resolution
	}
	if len(enriched.Codec) == 0 {
		enriched.Codec = torrentRelease.Codec
	}
	if enriched.Source == "" {
		enriched.Source = torrentRelease.Source
	}
	if len(enriched.HDR) == 0 {
		enriched.HDR = torrentRelease.HDR
	}
	if enriched.Series == 0 {
		enriched.Series = torrentRelease.Series
	}
	if enriched.Year == 0 {
		enriched.Year = torrentRelease.Year
	}
	return enriched
}
