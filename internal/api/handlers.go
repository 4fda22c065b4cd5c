// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
	"github.com/xseedapp/xseed/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

type searchRequest struct {
	Path     string `json:"path"`
	InfoHash string `json:"infoHash"`
}

type searchResponse struct {
	Searched string `json:"searched"`
}

// handleSearch implements POST /api/search: a single searchee, named by
// the path to its .torrent file or by the infohash of one already present
// under --torrent-dir, is run through exactly one RunSearch pass (§[MODULE
// L]). Unlike the CLI's search/inject commands this never scans
// --data-dirs; the admin API only targets one torrent at a time.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	se, err := s.resolveSearchee(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.pipeline.RunSearch(r.Context(), []*searchee.Searchee{se}); err != nil {
		log.Error().Err(err).Str("searchee", se.Name).Msg("search pass failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, searchResponse{Searched: se.Name})
}

func (s *Server) resolveSearchee(req searchRequest) (*searchee.Searchee, error) {
	if req.Path != "" {
		m, err := metafile.DecodeFile(req.Path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(req.Path)
		if err != nil {
			return nil, err
		}
		return searchee.FromMetafile(m, info.ModTime()), nil
	}

	if req.InfoHash != "" && s.torrentDir != "" {
		target := strings.ToLower(req.InfoHash)
		entries, err := os.ReadDir(s.torrentDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".torrent") {
				continue
			}
			path := filepath.Join(s.torrentDir, e.Name())
			m, err := metafile.DecodeFile(path)
			if err != nil {
				continue
			}
			if strings.ToLower(m.InfoHash) == target {
				info, err := e.Info()
				if err != nil {
					return nil, err
				}
				return searchee.FromMetafile(m, info.ModTime()), nil
			}
		}
		return nil, errNotFound("no torrent under torrent-dir matches that infohash")
	}

	return nil, errNotFound("request must set path or infoHash")
}

type errNotFound string

func (e errNotFound) Error() string { return string(e) }

type indexerView struct {
	ID         int              `json:"id"`
	Name       string           `json:"name"`
	URL        string           `json:"url"`
	Active     bool             `json:"active"`
	Status     string           `json:"status"`
	RetryAfter string           `json:"retryAfter,omitempty"`
	Caps       store.Caps       `json:"caps"`
}

// handleListIndexers implements GET /api/indexers.
func (s *Server) handleListIndexers(w http.ResponseWriter, r *http.Request) {
	idxs, err := s.indexers.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]indexerView, 0, len(idxs))
	for _, idx := range idxs {
		v := indexerView{
			ID:     idx.ID,
			Name:   idx.Name,
			URL:    idx.URL,
			Active: idx.Active,
			Status: string(idx.Status),
			Caps:   idx.Caps,
		}
		if idx.RetryAfter.Valid {
			v.RetryAfter = idx.RetryAfter.Time.Format("2006-01-02T15:04:05Z07:00")
		}
		views = append(views, v)
	}
	respondJSON(w, http.StatusOK, views)
}

// handleTestIndexer implements POST /api/indexers/{id}/test.
func (s *Server) handleTestIndexer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idxs, err := s.indexers.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for _, idx := range idxs {
		if strconv.Itoa(idx.ID) != id {
			continue
		}
		status, err := s.registry.TestConnection(r.Context(), idx)
		if err != nil {
			respondJSON(w, http.StatusOK, map[string]string{"status": string(status), "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
		return
	}
	respondError(w, http.StatusNotFound, "indexer not found")
}

type jobView struct {
	Name    domain.JobName `json:"name"`
	LastRun string         `json:"lastRun,omitempty"`
	NextRun string         `json:"nextRun,omitempty"`
	Running bool           `json:"running"`
}

// handleListJobs implements GET /api/jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	views := make([]jobView, 0, 2)
	for _, name := range []domain.JobName{domain.JobSearch, domain.JobRSS} {
		js, err := s.jobState.Get(r.Context(), name)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		v := jobView{Name: js.Name, Running: js.Running}
		if js.LastRun.Valid {
			v.LastRun = js.LastRun.Time.Format("2006-01-02T15:04:05Z07:00")
		}
		if js.NextRun.Valid {
			v.NextRun = js.NextRun.Time.Format("2006-01-02T15:04:05Z07:00")
		}
		views = append(views, v)
	}
	respondJSON(w, http.StatusOK, views)
}
