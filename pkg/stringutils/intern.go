// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package stringutils provides the string normalization the matcher's
// blocklist check and the client adapter's category/tag bookkeeping need,
// interning the results via Go 1.23's unique package so the same handful of
// release titles, tracker categories, and tag names recurring across a
// search pass of hundreds of candidates share one underlying allocation
// instead of a fresh string each time.
package stringutils

import (
	"strings"
	"unique"
)

// Intern returns a canonical representation of the string using Go's unique
// package. Identical strings share the same underlying memory, which the
// client adapter relies on when tagging every listed torrent with its
// category and tag names pass after pass.
func Intern(s string) string {
	if s == "" {
		return ""
	}
	return unique.Make(s).Value()
}

// InternNormalized interns a trimmed and lowercased version of the string.
// This is the canonical form NormalizeForMatching builds on for
// case-insensitive release-title comparisons.
func InternNormalized(s string) string {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return ""
	}
	return unique.Make(normalized).Value()
}

// InternNormalizedUpper interns a trimmed and uppercased version of the
// string, the form hashutil.NormalizeUpper canonicalizes info hashes to for
// client APIs that expect uppercase hex.
func InternNormalizedUpper(s string) string {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return ""
	}
	return unique.Make(normalized).Value()
}
