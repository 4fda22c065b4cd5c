// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathutil sanitizes names used as path segments on disk: tracker
// names and candidate titles that end up under linkDir (§4.G) come from
// Torznab responses and are not safe to use as filesystem path components
// verbatim.
package pathutil

import (
	"strings"
)

var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizePathSegment strips characters illegal in a single path component
// on any of the platforms this system runs on, trims trailing dots/spaces
// (illegal on Windows), and prefixes Windows-reserved device names with an
// underscore so they can't collide with a real device file.
func SanitizePathSegment(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			continue
		default:
			b.WriteRune(r)
		}
	}

	result := strings.TrimRight(b.String(), " .")

	if result == "" {
		return "_"
	}

	if windowsReserved[strings.ToUpper(result)] {
		return "_" + result
	}

	return result
}

// TorrentKey builds a filesystem-safe, deterministic identifier for a
// torrent from its infohash and name: an 8-character hash prefix (the full
// hash when shorter), a separator, and the sanitized name. Used where a
// candidate's title alone isn't safe or unique enough as a directory name.
func TorrentKey(infoHash, torrentName string) string {
	prefix := infoHash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	sanitizedName := SanitizePathSegment(torrentName)
	if sanitizedName == "_" && torrentName == "" {
		return prefix
	}

	return prefix + "_" + sanitizedName
}
