// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import "github.com/spf13/pflag"

// The overlay* helpers apply a flag onto *dst only if the user actually
// set it (pflag.Changed), so flags never clobber a value already resolved
// from the config file or environment at lower precedence.

func overlayString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		v, _ := fs.GetString(name)
		*dst = v
	}
}

func overlayInt(fs *pflag.FlagSet, name string, dst *int) {
	if fs.Changed(name) {
		v, _ := fs.GetInt(name)
		*dst = v
	}
}

func overlayFloat64(fs *pflag.FlagSet, name string, dst *float64) {
	if fs.Changed(name) {
		v, _ := fs.GetFloat64(name)
		*dst = v
	}
}

func overlayBool(fs *pflag.FlagSet, name string, dst *bool) {
	if fs.Changed(name) {
		v, _ := fs.GetBool(name)
		*dst = v
	}
}

func overlayStringSlice(fs *pflag.FlagSet, name string, dst *[]string) {
	if fs.Changed(name) {
		v, _ := fs.GetStringSlice(name)
		*dst = v
	}
}
