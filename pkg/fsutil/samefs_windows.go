// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build windows

package fsutil

import (
	"os"

	"github.com/xseedapp/xseed/pkg/hardlink"
)

func sameFilesystem(path1, path2 string) (bool, error) {
	fi1, err := os.Stat(path1)
	if err != nil {
		return false, err
	}
	fi2, err := os.Stat(path2)
	if err != nil {
		return false, err
	}

	id1, _, err := hardlink.GetFileID(fi1, path1)
	if err != nil {
		return false, err
	}
	id2, _, err := hardlink.GetFileID(fi2, path2)
	if err != nil {
		return false, err
	}

	return id1.VolumeSerialNumber == id2.VolumeSerialNumber, nil
}
