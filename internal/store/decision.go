// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/domain"
)

// Decision is the persisted row backing §3's Decision type.
type Decision struct {
	ID               int
	SearcheeName     string
	CandidateGUID    string
	InfoHash         sql.NullString
	IndexerID        int
	Verdict          domain.Verdict
	FuzzySizeFactor  sql.NullFloat64
	FirstSeen        time.Time
	LastSeen         time.Time
}

// DecisionStore persists match outcomes, idempotent on
// (searchee_name, candidate_guid) per §3's invariant.
type DecisionStore struct {
	db *database.DB
}

func NewDecisionStore(db *database.DB) *DecisionStore { return &DecisionStore{db: db} }

// Record is the §4.D contract: updates last_seen, writes first_seen only on
// insert, and never downgrades a MATCH-family verdict that is already
// terminal (§3 invariant: "a MATCH* verdict is terminal").
func (s *DecisionStore) Record(ctx context.Context, searcheeName, candidateGUID string, indexerID int, verdict domain.Verdict, infoHash string, fuzzyFactor *float64) error {
	existing, err := s.Get(ctx, searcheeName, candidateGUID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if existing != nil && existing.Verdict.IsMatch() {
		// Terminal verdict: only refresh last_seen, never the verdict itself.
		_, err := s.db.ExecContext(ctx, `UPDATE decisions SET last_seen=CURRENT_TIMESTAMP WHERE id=?`, existing.ID)
		return err
	}

	var infoHashArg any
	if infoHash != "" {
		infoHashArg = infoHash
	}
	var fuzzyArg any
	if fuzzyFactor != nil {
		fuzzyArg = *fuzzyFactor
	}

	if existing == nil {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO decisions (searchee_name, candidate_guid, info_hash, indexer_id, verdict, fuzzy_size_factor)
			VALUES (?, ?, ?, ?, ?, ?)`,
			searcheeName, candidateGUID, infoHashArg, indexerID, string(verdict), fuzzyArg)
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE decisions SET info_hash=?, indexer_id=?, verdict=?, fuzzy_size_factor=?, last_seen=CURRENT_TIMESTAMP
		WHERE id=?`,
		infoHashArg, indexerID, string(verdict), fuzzyArg, existing.ID)
	return err
}

// Get returns the existing decision row for (searcheeName, candidateGUID),
// or sql.ErrNoRows if none exists.
func (s *DecisionStore) Get(ctx context.Context, searcheeName, candidateGUID string) (*Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, searchee_name, candidate_guid, info_hash, indexer_id, verdict, fuzzy_size_factor, first_seen, last_seen
		FROM decisions WHERE searchee_name = ? AND candidate_guid = ?`, searcheeName, candidateGUID)
	var d Decision
	var verdict string
	err := row.Scan(&d.ID, &d.SearcheeName, &d.CandidateGUID, &d.InfoHash, &d.IndexerID, &verdict, &d.FuzzySizeFactor, &d.FirstSeen, &d.LastSeen)
	if err != nil {
		return nil, err
	}
	d.Verdict = domain.Verdict(verdict)
	return &d, nil
}

// HasTerminalDecision returns the terminal verdict for a (searchee,
// candidate) pair if one has already been recorded, letting the pipeline
// short-circuit re-matching (§4.D).
func (s *DecisionStore) HasTerminalDecision(ctx context.Context, searcheeName, candidateGUID string) (domain.Verdict, bool, error) {
	d, err := s.Get(ctx, searcheeName, candidateGUID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d.Verdict, true, nil
}

// ClearCache deletes decisions with no infohash — those that never reached
// a snatched download (§4.D `clear-cache` operation).
func (s *DecisionStore) ClearCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM decisions WHERE info_hash IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("clear decision cache: %w", err)
	}
	return res.RowsAffected()
}

// ListBySearchee returns all decisions recorded for a searchee.
func (s *DecisionStore) ListBySearchee(ctx context.Context, searcheeName string) ([]*Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, searchee_name, candidate_guid, info_hash, indexer_id, verdict, fuzzy_size_factor, first_seen, last_seen
		FROM decisions WHERE searchee_name = ?`, searcheeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Decision
	for rows.Next() {
		var d Decision
		var verdict string
		if err := rows.Scan(&d.ID, &d.SearcheeName, &d.CandidateGUID, &d.InfoHash, &d.IndexerID, &verdict, &d.FuzzySizeFactor, &d.FirstSeen, &d.LastSeen); err != nil {
			return nil, err
		}
		d.Verdict = domain.Verdict(verdict)
		out = append(out, &d)
	}
	return out, rows.Err()
}
