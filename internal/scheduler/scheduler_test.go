// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scheduler

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/store"
)

func newTestJobStateStore(t *testing.T) *store.JobStateStore {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "xseed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewJobStateStore(db)
}

func TestSchedulerRunsJobOnEachTick(t *testing.T) {
	jobState := newTestJobStateStore(t)
	var runs atomic.Int32

	job := Job{
		Name:    domain.JobSearch,
		Cadence: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}

	s := New(jobState, job)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()

	s.Start(ctx)
	require.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestSchedulerDropsTickWhileRunInFlight(t *testing.T) {
	jobState := newTestJobStateStore(t)
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	job := Job{
		Name:    domain.JobRSS,
		Cadence: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			n := concurrent.Add(1)
			if n > maxConcurrent.Load() {
				maxConcurrent.Store(n)
			}
			time.Sleep(40 * time.Millisecond)
			concurrent.Add(-1)
			return nil
		},
	}

	s := New(jobState, job)
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)
	require.LessOrEqual(t, maxConcurrent.Load(), int32(1))
}

func TestSchedulerRetriesAfterFatalError(t *testing.T) {
	jobState := newTestJobStateStore(t)
	var runs atomic.Int32

	job := Job{
		Name:    domain.JobSearch,
		Cadence: 15 * time.Millisecond,
		Run: func(ctx context.Context) error {
			n := runs.Add(1)
			if n == 1 {
				return context.DeadlineExceeded
			}
			return nil
		},
	}

	s := New(jobState, job)
	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	s.Start(ctx)
	require.GreaterOrEqual(t, runs.Load(), int32(2))
}
