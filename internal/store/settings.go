// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/xseedapp/xseed/internal/auth"
	"github.com/xseedapp/xseed/internal/database"
)

// SettingsStore persists small key/value pairs — notably the hashed admin
// API key used by `api-key`/`reset-api-key`.
type SettingsStore struct {
	db *database.DB
}

func NewSettingsStore(db *database.DB) *SettingsStore { return &SettingsStore{db: db} }

func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = ?`, key, value, value)
	return err
}

const APIKeyHashSettingKey = "api_key_hash"

// SetAPIKey argon2id-hashes key and persists the hash, replacing whatever
// key (if any) previously authorized the admin API.
func (s *SettingsStore) SetAPIKey(ctx context.Context, key string) error {
	hash, err := auth.HashPassword(key)
	if err != nil {
		return fmt.Errorf("hash api key: %w", err)
	}
	return s.Set(ctx, APIKeyHashSettingKey, hash)
}

// VerifyAPIKey reports whether key matches the persisted hash. It returns
// false, nil if no key has ever been set.
func (s *SettingsStore) VerifyAPIKey(ctx context.Context, key string) (bool, error) {
	hash, ok, err := s.Get(ctx, APIKeyHashSettingKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return auth.VerifyPassword(key, hash)
}

// EncryptionKeySettingKey persists the AES-256-GCM key IndexerStore uses to
// encrypt indexer API keys at rest.
const EncryptionKeySettingKey = "indexer_encryption_key"

// GetOrCreateEncryptionKey returns the persisted 32-byte key, generating and
// storing one on first run so every subsequent process start decrypts the
// same indexer rows.
func (s *SettingsStore) GetOrCreateEncryptionKey(ctx context.Context) ([]byte, error) {
	encoded, ok, err := s.Get(ctx, EncryptionKeySettingKey)
	if err != nil {
		return nil, err
	}
	if ok {
		key, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}
	if err := s.Set(ctx, EncryptionKeySettingKey, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("persist encryption key: %w", err)
	}
	return key, nil
}
