// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hardlink identifies physical files by device/inode (Unix) or
// volume serial/file index (Windows) so the linker can tell whether a
// destination path already points at the same file as a source path,
// rather than only at a path that happens to exist.
package hardlink

import "os"

func isSymlink(fi os.FileInfo) bool {
	return fi.Mode()&os.ModeSymlink != 0
}
