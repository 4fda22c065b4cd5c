// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package logging configures the process-wide zerolog logger. It is called
// once at startup; every component receives a *zerolog.Logger (or uses
// log.Logger directly) rather than reaching for a package-level global
// beyond zerolog's own.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger. LogPath empty means stderr-only.
type Options struct {
	Level      string
	LogPath    string
	MaxSize    int
	MaxBackups int
	Verbose    bool
}

// Init configures the global zerolog logger and returns it for components
// that prefer an explicit handle over the package-level log.Logger.
func Init(opts Options) zerolog.Logger {
	level := parseLevel(opts.Level, opts.Verbose)
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	var writer io.Writer = console
	if opts.LogPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.LogPath,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(console, rotator)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func parseLevel(level string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
