// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package releases

import (
	"strings"

	"github.com/moistari/rls"
)

// ContentTypeInfo is the classification BuildPlan needs to pick a Torznab
// query kind (§4.E: tvsearch/movie/music/book/search).
type ContentTypeInfo struct {
	// ContentType is one of: movie, tv, music, audiobook, book, comic, unknown.
	ContentType string
}

// normalizeReleaseTypeForContent corrects a common rls misclassification:
// a disc-layout searchee's directory name (e.g. "Movie.2024.BDMV" or a
// dash-heavy STREAM/PLAYLIST path) sometimes parses as rls.Music purely
// from dash-separated tokens. Video-format hints in the same name are
// reclassified to Episode/Movie before content-type detection runs.
func normalizeReleaseTypeForContent(release *rls.Release) *rls.Release {
	normalized := *release
	if normalized.Type != rls.Music {
		return &normalized
	}

	if looksLikeVideoRelease(&normalized) {
		if normalized.Series > 0 || normalized.Episode > 0 {
			normalized.Type = rls.Episode
		} else {
			normalized.Type = rls.Movie
		}
	}

	return &normalized
}

var videoTitleHints = []string{
	"2160p", "1080p", "720p", "576p", "480p", "4k", "remux", "rmhd", "hdr", "hdr10",
	"dolby vision", "dv", "uhd", "bluray", "blu-ray", "bdrip", "bdremux", "bd50", "bd25",
	"web-dl", "webdl", "webrip", "hdtv", "cam", "ts", "m2ts", "xvid", "x264", "x265", "hevc",
}

var videoSourceHints = []string{
	"uhd", "hdr", "remux", "stream", "bdmv", "bluray", "blu-ray", "bdrip", "bdremux",
	"webrip", "web-dl", "webdl", "hdtv", "dvdrip", "m2ts",
}

var videoCodecHints = []string{"x264", "x265", "h264", "h265", "hevc", "av1", "xvid", "divx"}

func looksLikeVideoRelease(release *rls.Release) bool {
	if release.Resolution != "" {
		return true
	}
	if len(release.HDR) > 0 {
		return true
	}
	if hasVideoCodecHints(release.Codec) {
		return true
	}
	if containsVideoTokens(release.Title, videoTitleHints) || containsVideoTokens(release.Group, videoTitleHints) {
		return true
	}
	if release.Source != "" {
		lowerSource := strings.ToLower(release.Source)
		for _, hint := range videoSourceHints {
			if strings.Contains(lowerSource, hint) {
				return true
			}
		}
	}
	return false
}

func hasVideoCodecHints(codecs []string) bool {
	for _, codec := range codecs {
		lowerCodec := strings.ToLower(codec)
		for _, hint := range videoCodecHints {
			if strings.Contains(lowerCodec, hint) {
				return true
			}
		}
	}
	return false
}

func containsVideoTokens(value string, tokens []string) bool {
	if value == "" {
		return false
	}
	lowerValue := strings.ToLower(value)
	for _, token := range tokens {
		if strings.Contains(lowerValue, token) {
			return true
		}
	}
	return false
}

// DetermineContentType maps a parsed release to one of the content-type
// buckets BuildPlan needs to select a Torznab query kind. Unlike a GUI
// library's classifier, this system never routes on game/app/adult
// categories — Module E only ever builds tvsearch/movie/music/book/search
// queries. The buckets are tv, movie, music, audiobook, book and comic
// (BuildPlan queries audiobook as music and comic as book); a release with
// none of those types and no season, episode or year is "unknown" and falls
// back to a generic search.
func DetermineContentType(release *rls.Release) ContentTypeInfo {
	release = normalizeReleaseTypeForContent(release)

	var info ContentTypeInfo
	switch release.Type {
	case rls.Movie:
		info.ContentType = "movie"
	case rls.Episode, rls.Series:
		info.ContentType = "tv"
	case rls.Music:
		info.ContentType = "music"
	case rls.Audiobook:
		info.ContentType = "audiobook"
	case rls.Book, rls.Education, rls.Magazine:
		info.ContentType = "book"
	case rls.Comic:
		info.ContentType = "comic"
	}

	if info.ContentType == "" {
		switch {
		case release.Series > 0 || release.Episode > 0:
			info.ContentType = "tv"
		case release.Year > 0:
			info.ContentType = "movie"
		default:
			info.ContentType = "unknown"
		}
	}

	return info
}
