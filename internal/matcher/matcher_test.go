// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import (
	"testing"

	"github.com/moistari/rls"
	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

func basePolicy(mode domain.MatchMode) Policy {
	return Policy{
		Mode:                mode,
		FuzzySizeThreshold:  0.02,
		IgnorableExtensions: domain.DefaultIgnorableExtensions,
	}
}

func newSearchee(files map[string]int64) *searchee.Searchee {
	s := &searchee.Searchee{Origin: searchee.OriginData, Name: "Some.Show.S01E01"}
	for path, size := range files {
		s.Files = append(s.Files, searchee.File{RelPath: path, Size: size})
	}
	return s
}

func newCandidate(infoHash, name string, files map[string]int64) *metafile.Metafile {
	m := &metafile.Metafile{InfoHash: infoHash, Name: name}
	for path, size := range files {
		m.Files = append(m.Files, metafile.File{Path: []string{path}, Length: size})
	}
	return m
}

func TestMatchRejectsPrivateTorrentAgainstDifferentSource(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	s.Private = true
	s.Source = "TRACKER-A"
	c := newCandidate("abc", "Some.Show.S01E01.OTHER", map[string]int64{"episode.mkv": 1000})
	c.Source = "TRACKER-B"

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictPrivateTrackerMismatch, result.Verdict)
}

func TestMatchAllowsPrivateTorrentAgainstSameSource(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	s.Private = true
	s.Source = "TRACKER-A"
	c := newCandidate("abc", "Some.Show.S01E01.OTHER", map[string]int64{"episode.mkv": 1000})
	c.Source = "TRACKER-A"

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictMatch, result.Verdict)
}

func TestMatchSkipsPrivateGuardWhenSourceTagAbsent(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	s.Private = true
	c := newCandidate("abc", "Some.Show.S01E01.OTHER", map[string]int64{"episode.mkv": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictMatch, result.Verdict)
}

func TestReleaseVariantConflictsCatchesDifferentSource(t *testing.T) {
	s := rls.Release{Source: "BluRay", Codec: []string{"x264"}}
	c := rls.Release{Source: "WEB-DL", Codec: []string{"x264"}}
	require.True(t, releaseVariantConflicts(s, c))
}

func TestReleaseVariantConflictsIgnoresCodecAliasVariance(t *testing.T) {
	s := rls.Release{Source: "BluRay", Codec: []string{"x264"}}
	c := rls.Release{Source: "BluRay", Codec: []string{"H.264"}}
	require.False(t, releaseVariantConflicts(s, c))
}

func TestReleaseVariantConflictsTreatsPlainWebAsAmbiguous(t *testing.T) {
	s := rls.Release{Source: "WEB"}
	c := rls.Release{Source: "WEBRip"}
	require.False(t, releaseVariantConflicts(s, c))
}

func TestReleaseVariantConflictsSkipsWhenEitherSideUnknown(t *testing.T) {
	require.False(t, releaseVariantConflicts(rls.Release{}, rls.Release{Source: "BluRay"}))
}

func TestMatchExactFileListIsMatch(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "Some.Show.S01E01.OTHER", map[string]int64{"episode.mkv": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictMatch, result.Verdict)
}

func TestMatchSafeRejectsRenamedFiles(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "renamed", map[string]int64{"different-name.mkv": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictFileTreeMismatch, result.Verdict)
}

func TestMatchRiskyAcceptsRenamedFilesBySizeBijection(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "renamed", map[string]int64{"different-name.mkv": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeRisky))
	require.Equal(t, domain.VerdictMatchSizeOnly, result.Verdict)
}

func TestMatchRiskyRejectsSizeBijectionAcrossDifferentEpisodes(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "Some.Show.S02E05.OTHER-GROUP", map[string]int64{"different-name.mkv": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeRisky))
	require.Equal(t, domain.VerdictFileTreeMismatch, result.Verdict)
}

func TestReleaseKeysConflictIgnoresAmbiguousNames(t *testing.T) {
	require.False(t, releaseKeysConflict("Some.Show.S01E01", "renamed"))
	require.True(t, releaseKeysConflict("Some.Show.S01E01", "Some.Show.S02E05.OTHER-GROUP"))
	require.False(t, releaseKeysConflict("Some.Show.S01E01", "Some.Show.S01E01.OTHER-GROUP"))
}

func TestMatchPartialAcceptsExtraIgnorableFile(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "with-nfo", map[string]int64{
		"different-name.mkv": 1000,
		"release.nfo":        10,
	})

	result := Match(s, c, nil, basePolicy(domain.MatchModePartial))
	require.Equal(t, domain.VerdictMatchPartial, result.Verdict)
	require.True(t, result.NeedsRecheck)
}

func TestMatchDetectsSizeMismatchBeyondFuzzyThreshold(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "bigger", map[string]int64{"episode.mkv": 2000})

	result := Match(s, c, nil, basePolicy(domain.MatchModePartial))
	require.Equal(t, domain.VerdictSizeMismatch, result.Verdict)
}

func TestMatchInfoHashAlreadyExistsTakesPriorityOverEverythingElse(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	s.InfoHash = "deadbeef"
	c := newCandidate("DEADBEEF", "same", map[string]int64{"episode.mkv": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictInfoHashAlreadyExist, result.Verdict)
}

func TestMatchBlockedReleaseByTitle(t *testing.T) {
	s := newSearchee(map[string]int64{"episode.mkv": 1000})
	c := newCandidate("abc", "Some.Show.S01E01.FAKE-GROUP", map[string]int64{"episode.mkv": 1000})

	policy := basePolicy(domain.MatchModeSafe)
	policy.BlockList = []string{"fake-group"}

	result := Match(s, c, nil, policy)
	require.Equal(t, domain.VerdictBlockedRelease, result.Verdict)
}

func TestMatchFlagsDiscImageSearcheeForRecheckEvenOnFullMatch(t *testing.T) {
	s := newSearchee(map[string]int64{"disc.iso": 1000})
	c := newCandidate("abc", "disc", map[string]int64{"disc.iso": 1000})

	result := Match(s, c, nil, basePolicy(domain.MatchModeSafe))
	require.Equal(t, domain.VerdictMatch, result.Verdict)
	require.True(t, result.NeedsRecheck)
}
