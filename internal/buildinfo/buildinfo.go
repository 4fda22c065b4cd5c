// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo exposes the version/commit/date values set by the
// release build's -ldflags, plus the User-Agent string sent with every
// outbound Torznab and webhook request.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Version, Commit, and Date are overridden at build time via
// -ldflags "-X github.com/xseedapp/xseed/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent is sent on every outbound HTTP request this program makes.
var UserAgent string

func init() {
	UserAgent = fmt.Sprintf("xseed/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String renders a human-readable multi-line version report for the
// `xseed version` command.
func String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild date: %s\n", Version, Commit, Date)
}

// JSON renders the same fields as a JSON object, for scripts that parse
// `xseed version --json`.
func JSON() ([]byte, error) {
	return json.Marshal(struct {
		Version string `json:"version"`
		Commit  string `json:"commit"`
		Date    string `json:"date"`
	}{Version, Commit, Date})
}
