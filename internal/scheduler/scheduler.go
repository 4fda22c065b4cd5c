// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scheduler drives two independent timer loops: a search cadence
// and an RSS cadence, each single-flighted through store.JobStateStore so
// a tick arriving while the previous run is still in flight is dropped
// rather than queued, using a channel-driven, two-ticker, run-to-completion
// model rather than a priority queue interleaving concurrent requests.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/store"
	"github.com/xseedapp/xseed/pkg/debounce"
)

// Run is the unit of work one tick executes. A non-nil error is logged and
// treated as a fatal-to-this-pass failure (§7 DB_ERROR/CLIENT_UNREACHABLE
// etc.): the loop waits one cadence and retries, never exiting the
// process.
type Run func(ctx context.Context) error

// Job pairs a name (for job_state single-flight bookkeeping) with the work
// it runs and the cadence between runs.
type Job struct {
	Name    domain.JobName
	Cadence time.Duration
	Run     Run
}

// Scheduler owns one ticking goroutine per registered Job.
type Scheduler struct {
	jobState *store.JobStateStore
	jobs     []Job

	mu         sync.Mutex
	debouncers map[domain.JobName]*debounce.Debouncer
}

func New(jobState *store.JobStateStore, jobs ...Job) *Scheduler {
	return &Scheduler{jobState: jobState, jobs: jobs, debouncers: make(map[domain.JobName]*debounce.Debouncer)}
}

// Start launches one loop per job and blocks until ctx is cancelled, at
// which point every loop is given a chance to finish its in-flight run
// before returning (§5: "in-flight requests are allowed their timeout to
// settle, after which the process exits").
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(j)
	}
	wg.Wait()

	s.mu.Lock()
	for _, d := range s.debouncers {
		d.Stop()
	}
	s.mu.Unlock()
}

// TriggerNow requests an out-of-cadence run of the named job, e.g. from the
// HTTP admin API's on-demand search endpoint (§6 "trigger a single-searchee
// search"). Repeated calls within a short window coalesce into a single
// run, so a burst of API requests never queues up more work than the
// single-flight guard would run anyway.
func (s *Scheduler) TriggerNow(ctx context.Context, name domain.JobName) {
	s.mu.Lock()
	d, ok := s.debouncers[name]
	if !ok {
		d = debounce.New(250 * time.Millisecond)
		s.debouncers[name] = d
	}
	s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Name != name {
			continue
		}
		job := job
		d.Do(func() {
			if err := s.runOnce(ctx, job); err != nil {
				log.Error().Err(err).Str("job", string(job.Name)).Msg("triggered run failed")
			}
		})
		return
	}
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	wait := s.firstDelay(ctx, job)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next := job.Cadence
		if err := s.runOnce(ctx, job); err != nil {
			log.Error().Err(err).Str("job", string(job.Name)).Msg("scheduled run failed; retrying next cadence")
		}
		if ctx.Err() != nil {
			return
		}
		timer.Reset(next)
	}
}

// firstDelay resumes a job's schedule across process restarts: if
// job_state recorded a next_run in the future, the first tick waits until
// then instead of firing immediately.
func (s *Scheduler) firstDelay(ctx context.Context, job Job) time.Duration {
	state, err := s.jobState.Get(ctx, job.Name)
	if err != nil || !state.NextRun.Valid {
		return job.Cadence
	}
	wait := time.Until(state.NextRun.Time)
	if wait < 0 {
		return 0
	}
	return wait
}

// runOnce enforces the single-flight invariant: TryAcquire fails (returns
// false) if a previous run is still marked running, in which case this
// tick is dropped entirely rather than queued (§4.I). Each acquired run
// gets its own UUID so every log line it emits can be grepped out of a
// run spanning dozens of searchees and indexers without guessing at
// timestamps.
func (s *Scheduler) runOnce(ctx context.Context, job Job) error {
	acquired, err := s.jobState.TryAcquire(ctx, job.Name)
	if err != nil {
		return err
	}
	if !acquired {
		log.Debug().Str("job", string(job.Name)).Msg("previous run still in flight, dropping this tick")
		return nil
	}
	defer func() {
		if releaseErr := s.jobState.Release(ctx, job.Name, job.Cadence); releaseErr != nil {
			log.Error().Err(releaseErr).Str("job", string(job.Name)).Msg("failed to release job state")
		}
	}()

	runID := uuid.NewString()
	ctx = withRunID(ctx, runID)
	log.Info().Str("job", string(job.Name)).Str("run_id", runID).Msg("job run starting")
	err = job.Run(ctx)
	log.Info().Str("job", string(job.Name)).Str("run_id", runID).Err(err).Msg("job run finished")
	return err
}
