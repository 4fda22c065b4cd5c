// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package releases

import (
	"sort"
	"strings"
)

// videoCodecAliases maps equivalent video codec names to a canonical form,
// so the matcher's release-variant guard (§4.F) never flags two releases
// encoded with the same codec under different group naming conventions
// (x264 vs H.264 vs AVC) as a conflicting variant.
var videoCodecAliases = map[string]string{
	"X264":  "AVC",
	"H.264": "AVC",
	"H264":  "AVC",
	"AVC":   "AVC",
	"X265":  "HEVC",
	"H.265": "HEVC",
	"H265":  "HEVC",
	"HEVC":  "HEVC",
}

// NormalizeVideoCodec converts a video codec string to its canonical form.
// Returns the original (uppercased) string if no alias mapping exists.
func NormalizeVideoCodec(codec string) string {
	upper := strings.ToUpper(strings.TrimSpace(codec))
	if canonical, ok := videoCodecAliases[upper]; ok {
		return canonical
	}
	return upper
}

// JoinNormalizedCodecSlice canonicalizes and sorts a release's codec list
// into a single comparable string, the shape releaseVariantConflicts needs
// to compare a searchee's and a candidate's codec sets for equality.
func JoinNormalizedCodecSlice(slice []string) string {
	if len(slice) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(slice))
	normalized := make([]string, 0, len(slice))
	for _, codec := range slice {
		n := NormalizeVideoCodec(codec)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, " ")
}

// sourceAliases maps source names to a canonical form so the matcher's
// release-variant guard can tell a WEB-DL rip from a BluRay remux that
// happens to share the same byte count, without being tripped up by naming
// variance within the same source. Plain "WEB" stays ambiguous (matches
// both WEBDL and WEBRIP) since the release-parsing library itself can't
// always tell them apart from the title alone.
var sourceAliases = map[string]string{
	"WEB-DL": "WEBDL",
	"WEBDL":  "WEBDL",
	"WEBRIP": "WEBRIP",
	"WEB":    "WEB",
}

// NormalizeSource converts a source string to its canonical form.
// Returns the original (uppercased) string if no alias mapping exists.
func NormalizeSource(source string) string {
	upper := strings.ToUpper(strings.TrimSpace(source))
	if canonical, ok := sourceAliases[upper]; ok {
		return canonical
	}
	return upper
}
