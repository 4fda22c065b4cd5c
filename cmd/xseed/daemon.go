// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/api"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/scheduler"
)

// newDaemonCmd runs the scheduled search/RSS loops and, unless --no-port is
// set, the HTTP admin API, until SIGINT/SIGTERM — grounded on the signal
// handling shape of a standalone-daemon main() in the retrieval pack,
// adapted from os/signal.Notify-and-select into a single errgroup-style
// context cancellation shared by every long-running component (§5).
func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the search and RSS schedulers, and the admin API, until stopped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			initLogging(cfg)

			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			searchCadence, err := cfg.SearchCadenceDuration()
			if err != nil {
				return fmt.Errorf("parse searchCadence: %w", err)
			}
			rssCadence, err := cfg.RSSCadenceDuration()
			if err != nil {
				return fmt.Errorf("parse rssCadence: %w", err)
			}

			sched := scheduler.New(a.jobState,
				scheduler.Job{
					Name:    domain.JobSearch,
					Cadence: searchCadence,
					Run: func(ctx context.Context) error {
						searchees, err := loadSearchees(ctx, cfg, a.adapter)
						if err != nil {
							return err
						}
						return a.pipeline.RunSearch(ctx, searchees)
					},
				},
				scheduler.Job{
					Name:    domain.JobRSS,
					Cadence: rssCadence,
					Run: func(ctx context.Context) error {
						searchees, err := loadSearchees(ctx, cfg, a.adapter)
						if err != nil {
							return err
						}
						return a.pipeline.RunRSS(ctx, searchees)
					},
				},
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher, err := scheduler.NewWatcher(cfg.TorrentDir, 2*time.Second, func() {
				sched.TriggerNow(ctx, domain.JobSearch)
			})
			if err != nil {
				log.Warn().Err(err).Str("torrentDir", cfg.TorrentDir).Msg("could not start torrent-dir watcher; relying on cadence timers only")
				watcher = nil
			}

			var srv *api.Server
			if !cfg.NoPort {
				srv, err = api.New(api.Config{
					Addr:       fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
					APIKey:     cfg.APIKey,
					TorrentDir: cfg.TorrentDir,
					Pipeline:   a.pipeline,
					Indexers:   a.indexers,
					Registry:   a.registry,
					JobState:   a.jobState,
					Settings:   a.settings,
					Metrics:    a.metrics,
				})
				if err != nil {
					return fmt.Errorf("build admin API: %w", err)
				}
			}

			waiters := 2
			errCh := make(chan error, 3)
			go func() {
				sched.Start(ctx)
				errCh <- nil
			}()
			if srv != nil {
				go func() {
					errCh <- srv.Start(ctx)
				}()
			} else {
				errCh <- nil
			}
			if watcher != nil {
				waiters++
				go func() {
					watcher.Run(ctx)
					errCh <- nil
				}()
			}

			var firstErr error
			for i := 0; i < waiters; i++ {
				if err := <-errCh; err != nil && firstErr == nil {
					firstErr = err
				}
			}
			log.Info().Msg("daemon stopped")
			return firstErr
		},
	}
}
