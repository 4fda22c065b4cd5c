// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/domain"
)

// JobState is the persisted row backing §3's Job state type.
type JobState struct {
	Name    domain.JobName
	LastRun sql.NullTime
	NextRun sql.NullTime
	Running bool
}

type JobStateStore struct {
	db *database.DB
}

func NewJobStateStore(db *database.DB) *JobStateStore { return &JobStateStore{db: db} }

func (s *JobStateStore) Get(ctx context.Context, name domain.JobName) (*JobState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, last_run, next_run, running FROM job_state WHERE name = ?`, string(name))
	var js JobState
	var n string
	err := row.Scan(&n, &js.LastRun, &js.NextRun, &js.Running)
	if errors.Is(err, sql.ErrNoRows) {
		return &JobState{Name: name}, nil
	}
	if err != nil {
		return nil, err
	}
	js.Name = domain.JobName(n)
	return &js, nil
}

// TryAcquire sets running=1 if and only if it was previously 0, enforcing
// the single-flight invariant in §3 ("running? is true for at most one
// holder per job name").
func (s *JobStateStore) TryAcquire(ctx context.Context, name domain.JobName) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_state (name, running) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET running = 1 WHERE job_state.running = 0`,
		string(name))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Release marks the job idle and records this run's completion time plus
// the next scheduled time (run_end + cadence, per §4.I).
func (s *JobStateStore) Release(ctx context.Context, name domain.JobName, cadence time.Duration) error {
	now := time.Now()
	next := now.Add(cadence)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_state (name, last_run, next_run, running) VALUES (?, ?, ?, 0)
		ON CONFLICT (name) DO UPDATE SET last_run = ?, next_run = ?, running = 0`,
		string(name), now, next, now, next)
	return err
}
