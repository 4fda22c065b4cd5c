// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xseedapp/xseed/internal/database"
)

// Timestamp is the persisted row backing §3's Timestamps type, extended
// with the RSS cursor fields used to resolve Open Question (a): the cursor
// is (last_guid, last_pub_date), and an RSS item is new if its pubDate is
// strictly after the cursor, or equal with an unseen guid.
type Timestamp struct {
	SearcheeName  string
	IndexerID     int
	FirstSearched time.Time
	LastSearched  time.Time
	LastGUID      sql.NullString
	LastPubDate   sql.NullTime
}

type TimestampStore struct {
	db *database.DB
}

func NewTimestampStore(db *database.DB) *TimestampStore { return &TimestampStore{db: db} }

// Touch records that (searcheeName, indexerID) was searched now, creating
// the row with first_searched on first touch.
func (s *TimestampStore) Touch(ctx context.Context, searcheeName string, indexerID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timestamps (searchee_name, indexer_id, first_searched, last_searched)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (searchee_name, indexer_id) DO UPDATE SET last_searched = CURRENT_TIMESTAMP`,
		searcheeName, indexerID)
	return err
}

func (s *TimestampStore) Get(ctx context.Context, searcheeName string, indexerID int) (*Timestamp, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT searchee_name, indexer_id, first_searched, last_searched, last_guid, last_pub_date
		FROM timestamps WHERE searchee_name = ? AND indexer_id = ?`, searcheeName, indexerID)
	var t Timestamp
	err := row.Scan(&t.SearcheeName, &t.IndexerID, &t.FirstSearched, &t.LastSearched, &t.LastGUID, &t.LastPubDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AdvanceRSSCursor persists the newest (guid, pubDate) seen for an indexer's
// RSS feed. The sentinel searchee name "" is used for the per-indexer
// cursor row, distinct from per-searchee search timestamps.
func (s *TimestampStore) AdvanceRSSCursor(ctx context.Context, indexerID int, guid string, pubDate time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timestamps (searchee_name, indexer_id, first_searched, last_searched, last_guid, last_pub_date)
		VALUES ('', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, ?, ?)
		ON CONFLICT (searchee_name, indexer_id) DO UPDATE SET last_searched = CURRENT_TIMESTAMP, last_guid = ?, last_pub_date = ?`,
		indexerID, guid, pubDate, guid, pubDate)
	return err
}

// RSSCursor returns the last known cursor for an indexer's RSS feed.
func (s *TimestampStore) RSSCursor(ctx context.Context, indexerID int) (guid string, pubDate time.Time, ok bool, err error) {
	t, getErr := s.Get(ctx, "", indexerID)
	if errors.Is(getErr, sql.ErrNoRows) {
		return "", time.Time{}, false, nil
	}
	if getErr != nil {
		return "", time.Time{}, false, getErr
	}
	if !t.LastGUID.Valid && !t.LastPubDate.Valid {
		return "", time.Time{}, false, nil
	}
	return t.LastGUID.String, t.LastPubDate.Time, true, nil
}

// IsOlderThan reports whether a searchee first seen before cutoff should be
// excluded per --exclude-older.
func (t *Timestamp) IsOlderThan(cutoff time.Time) bool {
	return t.FirstSearched.Before(cutoff)
}

// WasRecentlySearched reports whether last_searched falls after cutoff, per
// --exclude-recent-search.
func (t *Timestamp) WasRecentlySearched(cutoff time.Time) bool {
	return t.LastSearched.After(cutoff)
}
