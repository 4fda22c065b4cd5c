// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/pkg/debounce"
)

// Watcher supplements the two cadence timers (§4.I) with an immediate,
// debounced trigger whenever a new .torrent file lands in the watched
// directory, so a manually-added torrent doesn't wait a full searchCadence
// before its first pass.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debounce.Debouncer
	dir       string
	onEvent   func()
}

// NewWatcher watches dir for .torrent file creates/writes and calls onEvent
// (debounced by window, so a burst of adds coalesces into one call) after
// each one settles. A blank dir is not an error: the daemon falls back to
// cadence-only behavior.
func NewWatcher(dir string, window time.Duration, onEvent func()) (*Watcher, error) {
	if dir == "" {
		return nil, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		watcher:   fw,
		debouncer: debounce.New(window),
		dir:       dir,
		onEvent:   onEvent,
	}, nil
}

// Run drains fsnotify events until ctx is cancelled. Non-.torrent entries
// and anything but create/write are ignored; a watch error is logged once
// per occurrence rather than torn down, since a transient ENOSPC/EINTR from
// the underlying inotify/kqueue layer shouldn't kill the daemon's fallback
// cadence loops.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	defer w.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".torrent") {
				continue
			}
			w.debouncer.Do(w.onEvent)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("dir", w.dir).Msg("data dir watcher error")
		}
	}
}
