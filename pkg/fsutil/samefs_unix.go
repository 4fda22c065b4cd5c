// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build !windows

package fsutil

import (
	"errors"
	"os"
	"syscall"
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

	sys1, ok := fi1.Sys().(*syscall.Stat_t)
	if !ok {
		return false, errors.New("failed to get syscall.Stat_t for " + path1)
	}
	sys2, ok := fi2.Sys().(*syscall.Stat_t)
	if !ok {
		return false, errors.New("failed to get syscall.Stat_t for " + path2)
	}

	return sys1.Dev == sys2.Dev, nil
}
