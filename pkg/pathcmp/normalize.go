// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathcmp provides shared path normalization helpers for comparing
// file paths gathered from different sources: a metafile's own path
// components, a walked data directory, and a qBittorrent save path that may
// have been reported by a remote instance running on a different OS than
// this process. All three are generally forward-slash-friendly, so
// normalization is done with path semantics rather than filepath's.
package pathcmp

import (
	"path"
	"strings"
)

// NormalizePath normalizes a file path for comparison by:
// - Converting backslashes to forward slashes
// - Removing trailing slashes (preserving Windows drive roots like C:/)
// - Cleaning the path (removing . and .. where possible)
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	// Convert backslashes to forward slashes for cross-platform comparison.
	p = strings.ReplaceAll(p, "\\", "/")

	// Handle Windows drive paths specially to preserve C:/ (path.Clean turns it into C:).
	if len(p) >= 2 && ((p[0] >= 'A' && p[0] <= 'Z') || (p[0] >= 'a' && p[0] <= 'z')) && p[1] == ':' {
		drive := p[:2] // "C:"
		rest := p[2:]  // "/foo/bar" or "/" or "" (drive-relative)

		// Bare drive letter (C:) is drive-relative.
		if rest == "" {
			return drive
		}

		rest = path.Clean(rest)
		// Ensure drive root stays as C:/ not C:
		if rest == "/" || rest == "." {
			return drive + "/"
		}
		return drive + rest
	}

	// Non-Windows path: standard cleaning.
	p = path.Clean(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// NormalizePathFold is a case-folded version of NormalizePath for case-insensitive comparisons.
func NormalizePathFold(p string) string {
	return strings.ToLower(NormalizePath(p))
}
