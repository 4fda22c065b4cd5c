// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/auth"
	"github.com/xseedapp/xseed/internal/store"
)

// bearerAuth checks the Authorization: Bearer <key> header against either
// the configured --api-key (compared directly, for operators who pin a key
// in config) or the argon2id hash persisted by `api-key`/`reset-api-key`,
// whichever is set. An empty configuredKey and no persisted hash leaves the
// API unauthenticated until a key is generated.
func bearerAuth(configuredKey string, settings *store.SettingsStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var presented string
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				presented = strings.TrimPrefix(h, "Bearer ")
			}

			if configuredKey != "" {
				if presented == configuredKey {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			hash, ok, err := settings.Get(r.Context(), store.APIKeyHashSettingKey)
			if err != nil {
				log.Error().Err(err).Msg("failed to load api key hash")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			valid, err := auth.VerifyPassword(presented, hash)
			if err != nil || !valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
