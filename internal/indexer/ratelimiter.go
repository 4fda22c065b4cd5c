// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultMinRequestInterval = 2 * time.Second

// Priority scales how aggressively a caller is willing to wait for a free
// request slot, mirroring an interactive/rss/background priority split in
// internal/services/jackett/ratelimiter.go.
type Priority string

const (
	PriorityInteractive Priority = "interactive"
	PriorityRSS         Priority = "rss"
	PriorityBackground  Priority = "background"
)

var priorityMultipliers = map[Priority]float64{
	PriorityInteractive: 0.1,
	PriorityRSS:         0.5,
	PriorityBackground:  1.0,
}

// WaitOptions tunes a single BeforeRequest call.
type WaitOptions struct {
	Priority    Priority
	MinInterval time.Duration
	MaxWait     time.Duration
}

// WaitExceededError is returned when a caller's MaxWait would be exceeded by
// the indexer's current cooldown or per-indexer minimum interval.
type WaitExceededError struct {
	IndexerID int
	Wait      time.Duration
	MaxWait   time.Duration
}

func (e *WaitExceededError) Error() string {
	return fmt.Sprintf("indexer %d rate limit requires %s wait, exceeding maximum of %s", e.IndexerID, e.Wait, e.MaxWait)
}

type indexerState struct {
	lastRequest   time.Duration
	cooldownUntil time.Duration
}

// RateLimiter enforces a per-indexer minimum request interval plus an
// explicit cooldown window set after a 429 response. It is process-lifetime
// and shared across the scheduler's search and RSS loops so both honor the
// same per-indexer pacing.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	states      map[int]*indexerState
	startTime   time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = defaultMinRequestInterval
	}
	return &RateLimiter{
		minInterval: minInterval,
		states:      make(map[int]*indexerState),
		startTime:   time.Now(),
	}
}

// BeforeRequest blocks until indexerID may issue its next request, or
// returns a WaitExceededError/ctx.Err() if that wait would exceed opts.
func (r *RateLimiter) BeforeRequest(ctx context.Context, indexerID int, opts WaitOptions) error {
	cfg := r.resolve(opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		now := time.Since(r.startTime)
		wait := r.computeWaitLocked(indexerID, now, cfg.MinInterval)
		if wait <= 0 {
			r.recordLocked(indexerID, now)
			return nil
		}
		if cfg.MaxWait > 0 && wait > cfg.MaxWait {
			return &WaitExceededError{IndexerID: indexerID, Wait: wait, MaxWait: cfg.MaxWait}
		}

		timer := time.NewTimer(wait)
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			timer.Stop()
			r.mu.Lock()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
		}
	}
}

// SetCooldown records a cooldown deadline, never shortening an existing one.
func (r *RateLimiter) SetCooldown(indexerID int, until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.stateLocked(indexerID)
	dur := until.Sub(r.startTime)
	if dur > state.cooldownUntil {
		state.cooldownUntil = dur
	}
}

// ClearCooldown drops any recorded cooldown, used after MarkSuccess.
func (r *RateLimiter) ClearCooldown(indexerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateLocked(indexerID).cooldownUntil = 0
}

// IsInCooldown reports whether indexerID is currently blocked, without
// waiting.
func (r *RateLimiter) IsInCooldown(indexerID int) (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Since(r.startTime)
	state := r.stateLocked(indexerID)
	if state.cooldownUntil > now {
		return true, r.startTime.Add(state.cooldownUntil)
	}
	return false, time.Time{}
}

func (r *RateLimiter) computeWaitLocked(indexerID int, now, minInterval time.Duration) time.Duration {
	state := r.stateLocked(indexerID)
	var wait time.Duration
	if state.cooldownUntil > now {
		wait = state.cooldownUntil - now
	}
	if minInterval > 0 && state.lastRequest >= 0 {
		if next := state.lastRequest + minInterval; next > now {
			if delay := next - now; delay > wait {
				wait = delay
			}
		}
	}
	return wait
}

func (r *RateLimiter) stateLocked(indexerID int) *indexerState {
	s, ok := r.states[indexerID]
	if !ok {
		s = &indexerState{lastRequest: -1}
		r.states[indexerID] = s
	}
	return s
}

func (r *RateLimiter) recordLocked(indexerID int, ts time.Duration) {
	r.stateLocked(indexerID).lastRequest = ts
}

func (r *RateLimiter) resolve(opts WaitOptions) WaitOptions {
	cfg := WaitOptions{Priority: PriorityBackground, MinInterval: r.minInterval}
	if opts.Priority != "" {
		cfg.Priority = opts.Priority
	}
	if opts.MinInterval > 0 {
		cfg.MinInterval = opts.MinInterval
	}
	if opts.MaxWait > 0 {
		cfg.MaxWait = opts.MaxWait
	}
	if mult, ok := priorityMultipliers[cfg.Priority]; ok {
		cfg.MinInterval = time.Duration(float64(cfg.MinInterval) * mult)
	}
	return cfg
}
