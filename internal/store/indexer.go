// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package store implements the persistence-backed pieces of the indexer
// registry (Module C) and decision cache (Module D): the `indexers`,
// `decisions`, `timestamps`, `job_state`, and `settings` tables, generalized
// from a single-field CRUD store into a capability/health/cooldown model.
package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xseedapp/xseed/internal/database"
	"github.com/xseedapp/xseed/internal/domain"
)

var ErrIndexerNotFound = errors.New("indexer not found")

// Caps is an indexer's advertised Torznab capabilities.
type Caps struct {
	Search  bool     `json:"search"`
	TV      bool     `json:"tv"`
	Movie   bool     `json:"movie"`
	Music   bool     `json:"music"`
	Audio   bool     `json:"audio"`
	Book    bool     `json:"book"`
	IDCaps  []string `json:"idCaps"`
	CatCaps []string `json:"catCaps"`
	Limits  struct {
		Max     int `json:"max"`
		Default int `json:"default"`
	} `json:"limits"`
}

// Indexer is the persisted row backing §3's Indexer type.
type Indexer struct {
	ID            int
	Name          string
	URL           string
	apiKeyEnc     []byte
	Active        bool
	Status        domain.IndexerStatus
	RetryAfter    sql.NullTime
	OffenseCount  int
	Caps          Caps
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InCooldown reports whether the indexer should be skipped by query
// planning right now (§3: "while retry_after is set and in the future, the
// indexer is skipped ... but remains enumerable").
func (i *Indexer) InCooldown(now time.Time) bool {
	return i.RetryAfter.Valid && i.RetryAfter.Time.After(now)
}

// IndexerStore persists the indexer registry. API keys are stored
// AES-256-GCM-encrypted at rest using a persisted-key encrypt/decrypt pair.
type IndexerStore struct {
	db            *database.DB
	encryptionKey []byte
}

func NewIndexerStore(db *database.DB, encryptionKey []byte) (*IndexerStore, error) {
	if len(encryptionKey) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	return &IndexerStore{db: db, encryptionKey: encryptionKey}, nil
}

func (s *IndexerStore) encrypt(plaintext string) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (s *IndexerStore) decrypt(ciphertext []byte) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", errors.New("malformed ciphertext")
	}
	nonce, data := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// GetDecryptedAPIKey decrypts the stored API key for use in a live request.
func (s *IndexerStore) GetDecryptedAPIKey(i *Indexer) (string, error) {
	return s.decrypt(i.apiKeyEnc)
}

// Create inserts a new indexer row with default capabilities and OK status.
func (s *IndexerStore) Create(ctx context.Context, name, url, apiKey string) (*Indexer, error) {
	enc, err := s.encrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt api key: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO indexers (name, url, api_key_enc, active, status, limit_max, limit_default)
		VALUES (?, ?, ?, 1, 'OK', 100, 50)`,
		name, url, enc)
	if err != nil {
		return nil, fmt.Errorf("create indexer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, int(id))
}

func scanIndexer(row interface{ Scan(...any) error }) (*Indexer, error) {
	var i Indexer
	var idCapsJSON, catCapsJSON string
	err := row.Scan(
		&i.ID, &i.Name, &i.URL, &i.apiKeyEnc, &i.Active, &i.Status, &i.RetryAfter, &i.OffenseCount,
		&i.Caps.Search, &i.Caps.TV, &i.Caps.Movie, &i.Caps.Music, &i.Caps.Audio, &i.Caps.Book,
		&idCapsJSON, &catCapsJSON, &i.Caps.Limits.Max, &i.Caps.Limits.Default,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(idCapsJSON), &i.Caps.IDCaps)
	_ = json.Unmarshal([]byte(catCapsJSON), &i.Caps.CatCaps)
	return &i, nil
}

const indexerColumns = `id, name, url, api_key_enc, active, status, retry_after, offense_count,
	caps_search, caps_tv, caps_movie, caps_music, caps_audio, caps_book, id_caps, cat_caps, limit_max, limit_default,
	created_at, updated_at`

func (s *IndexerStore) Get(ctx context.Context, id int) (*Indexer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+indexerColumns+` FROM indexers WHERE id = ?`, id)
	i, err := scanIndexer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIndexerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get indexer: %w", err)
	}
	return i, nil
}

func (s *IndexerStore) list(ctx context.Context, whereActive bool) ([]*Indexer, error) {
	query := `SELECT ` + indexerColumns + ` FROM indexers`
	if whereActive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list indexers: %w", err)
	}
	defer rows.Close()

	var out []*Indexer
	for rows.Next() {
		i, err := scanIndexer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan indexer: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// List returns every indexer, active or not.
func (s *IndexerStore) List(ctx context.Context) ([]*Indexer, error) { return s.list(ctx, false) }

// ListActive returns indexers still eligible for query planning.
// Cooled-down indexers remain enumerable here (§3); callers filter on
// InCooldown when building a query plan.
func (s *IndexerStore) ListActive(ctx context.Context) ([]*Indexer, error) { return s.list(ctx, true) }

// SetCaps persists an indexer's discovered Torznab capabilities.
func (s *IndexerStore) SetCaps(ctx context.Context, id int, caps Caps) error {
	idCapsJSON, _ := json.Marshal(caps.IDCaps)
	catCapsJSON, _ := json.Marshal(caps.CatCaps)
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexers SET caps_search=?, caps_tv=?, caps_movie=?, caps_music=?, caps_audio=?, caps_book=?,
			id_caps=?, cat_caps=?, limit_max=?, limit_default=?, updated_at=CURRENT_TIMESTAMP
		WHERE id = ?`,
		caps.Search, caps.TV, caps.Movie, caps.Music, caps.Audio, caps.Book,
		string(idCapsJSON), string(catCapsJSON), caps.Limits.Max, caps.Limits.Default, id)
	return err
}

// MarkSuccess resets failure state after a clean response (§4.C: "On
// consecutive successful passes the status counter resets").
func (s *IndexerStore) MarkSuccess(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexers SET status='OK', retry_after=NULL, offense_count=0, updated_at=CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

// MarkRateLimited records a 429 and advances the exponential cooldown
// ladder (§4.C, §9 scenario 5).
func (s *IndexerStore) MarkRateLimited(ctx context.Context, id int, now time.Time) (time.Time, error) {
	idx, err := s.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	offense := idx.OffenseCount + 1
	retryAfter := now.Add(domain.RateLimitBackoff(offense))

	_, err = s.db.ExecContext(ctx, `
		UPDATE indexers SET status='RATE_LIMITED', retry_after=?, offense_count=?, updated_at=CURRENT_TIMESTAMP
		WHERE id = ?`, retryAfter, offense, id)
	if err != nil {
		return time.Time{}, err
	}
	return retryAfter, nil
}

// MarkAuthFailed records a 401; the indexer is skipped until config changes.
func (s *IndexerStore) MarkAuthFailed(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexers SET status='INVALID_AUTH', updated_at=CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// MarkUnknownError records a non-classified failure.
func (s *IndexerStore) MarkUnknownError(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexers SET status='UNKNOWN_ERROR', updated_at=CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// ClearFailures is the `clear-indexer-failures` CLI operation: resets
// status and retry_after for every row.
func (s *IndexerStore) ClearFailures(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexers SET status='OK', retry_after=NULL, offense_count=0, updated_at=CURRENT_TIMESTAMP`)
	return err
}

func (s *IndexerStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM indexers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIndexerNotFound
	}
	return nil
}

// UpsertFromURL creates the row if url is new, otherwise leaves it
// untouched; used at startup to reconcile configured
// --torznab URLs with the persisted registry.
func (s *IndexerStore) UpsertFromURL(ctx context.Context, name, url, apiKey string) (*Indexer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id FROM indexers WHERE url = ?`, url)
	var id int
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.Create(ctx, name, url, apiKey)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
