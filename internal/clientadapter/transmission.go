// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package clientadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

// transmissionAdapter speaks Transmission's RPC protocol directly. No
// Transmission client library appears anywhere in the retrieval pack, so
// this follows the same precedent xmlrpcClient sets for rTorrent: a small
// hand-rolled client scoped to exactly the methods the adapter contract
// needs, built on net/http and encoding/json rather than the XML-RPC
// transport rTorrent requires.
//
// Transmission's RPC endpoint requires a X-Transmission-Session-Id header
// on every request after the first; a request sent without one (or with a
// stale one) gets a 409 carrying the fresh id, which the client must retry
// with exactly once. The pipeline's searchee workers call the adapter
// concurrently, so sessionID is guarded by mu rather than written bare.
type transmissionAdapter struct {
	endpoint            string
	username            string
	password            string
	http                *http.Client
	duplicateCategories bool

	mu        sync.Mutex
	sessionID string
}

func newTransmissionAdapter(ctx context.Context, rpcURL string, duplicateCategories bool) (Adapter, error) {
	host, username, password, err := splitRPCURL(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("transmission rpc url: %w", err)
	}
	a := &transmissionAdapter{
		endpoint:            host,
		username:            username,
		password:            password,
		http:                &http.Client{},
		duplicateCategories: duplicateCategories,
	}
	if err := a.ValidateConfig(ctx); err != nil {
		return nil, fmt.Errorf("transmission connect: %w", err)
	}
	return a, nil
}

type transmissionRequest struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
	Tag       int    `json:"tag,omitempty"`
}

type transmissionResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
	Tag       int             `json:"tag,omitempty"`
}

// rpc posts a single Transmission RPC call, retrying once if the session id
// the client is holding (or the lack of one) gets rejected with a 409.
func (a *transmissionAdapter) rpc(ctx context.Context, method string, args any, out any) error {
	resp, err := a.do(ctx, method, args)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		a.mu.Lock()
		a.sessionID = resp.Header.Get("X-Transmission-Session-Id")
		a.mu.Unlock()
		resp.Body.Close()
		resp, err = a.do(ctx, method, args)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("transmission rpc %s: status %d: %s", method, resp.StatusCode, body)
	}

	var tr transmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode transmission response: %w", err)
	}
	if tr.Result != "success" {
		return fmt.Errorf("transmission rpc %s failed: %s", method, tr.Result)
	}
	if out != nil {
		if err := json.Unmarshal(tr.Arguments, out); err != nil {
			return fmt.Errorf("decode transmission arguments: %w", err)
		}
	}
	return nil
}

func (a *transmissionAdapter) do(ctx context.Context, method string, args any) (*http.Response, error) {
	body, err := json.Marshal(transmissionRequest{Method: method, Arguments: args})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	a.mu.Lock()
	sessionID := a.sessionID
	a.mu.Unlock()
	if sessionID != "" {
		req.Header.Set("X-Transmission-Session-Id", sessionID)
	}
	if a.username != "" {
		req.SetBasicAuth(a.username, a.password)
	}
	return a.http.Do(req)
}

func (a *transmissionAdapter) IsTorrentComplete(ctx context.Context, infoHash string) (bool, error) {
	var out struct {
		Torrents []struct {
			PercentDone float64 `json:"percentDone"`
		} `json:"torrents"`
	}
	err := a.rpc(ctx, "torrent-get", map[string]any{
		"fields": []string{"percentDone"},
		"ids":    []string{strings.ToLower(infoHash)},
	}, &out)
	if err != nil {
		return false, err
	}
	if len(out.Torrents) == 0 {
		return false, nil
	}
	return out.Torrents[0].PercentDone >= 1, nil
}

func (a *transmissionAdapter) GetAllTorrents(ctx context.Context) ([]Torrent, error) {
	var out struct {
		Torrents []struct {
			HashString  string   `json:"hashString"`
			Labels      []string `json:"labels"`
			DownloadDir string   `json:"downloadDir"`
			Trackers    []struct {
				Announce string `json:"announce"`
			} `json:"trackers"`
		} `json:"torrents"`
	}
	err := a.rpc(ctx, "torrent-get", map[string]any{
		"fields": []string{"hashString", "labels", "downloadDir", "trackers"},
	}, &out)
	if err != nil {
		return nil, err
	}
	result := make([]Torrent, 0, len(out.Torrents))
	for _, t := range out.Torrents {
		tr := Torrent{InfoHash: strings.ToLower(t.HashString), Tags: t.Labels, SavePath: t.DownloadDir}
		if len(t.Labels) > 0 {
			tr.Category = t.Labels[0]
		}
		for _, tk := range t.Trackers {
			tr.Trackers = append(tr.Trackers, []string{tk.Announce})
		}
		result = append(result, tr)
	}
	return result, nil
}

func (a *transmissionAdapter) GetDownloadDir(ctx context.Context, m *metafile.Metafile, onlyCompleted bool) (string, domain.SaveDirResult, error) {
	var out struct {
		Torrents []struct {
			DownloadDir string  `json:"downloadDir"`
			PercentDone float64 `json:"percentDone"`
		} `json:"torrents"`
	}
	err := a.rpc(ctx, "torrent-get", map[string]any{
		"fields": []string{"downloadDir", "percentDone"},
		"ids":    []string{m.InfoHash},
	}, &out)
	if err != nil {
		return "", domain.SaveDirUnknownError, err
	}
	if len(out.Torrents) == 0 {
		return "", domain.SaveDirNotFound, nil
	}
	t := out.Torrents[0]
	if onlyCompleted && t.PercentDone < 1 {
		return "", domain.SaveDirTorrentNotComplete, nil
	}
	return t.DownloadDir, "", nil
}

// Inject adds m paused with the data already in place, sets its label if
// duplicateCategories requests it, then starts it. paused:true avoids
// Transmission's "Allow duplicates" error path racing the add against the
// start, the same avoid-the-race motivation as the qBittorrent adapter's
// skip_checking option.
func (a *transmissionAdapter) Inject(ctx context.Context, m *metafile.Metafile, s *searchee.Searchee, verdict domain.Verdict, dataPath string) (domain.InjectResult, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return domain.InjectFailure, fmt.Errorf("encode metafile: %w", err)
	}

	args := map[string]any{
		"metainfo":     base64.StdEncoding.EncodeToString(buf.Bytes()),
		"download-dir": dataPath,
		"paused":       true,
	}
	if a.duplicateCategories {
		args["labels"] = []string{s.Name}
	}

	type addedTorrent struct {
		ID int `json:"id"`
	}
	var out struct {
		TorrentAdded     *addedTorrent `json:"torrent-added"`
		TorrentDuplicate *addedTorrent `json:"torrent-duplicate"`
	}
	if err := a.rpc(ctx, "torrent-add", args, &out); err != nil {
		return domain.InjectFailure, err
	}
	if out.TorrentDuplicate != nil {
		return domain.InjectAlreadyExists, nil
	}
	if out.TorrentAdded == nil {
		return domain.InjectFailure, fmt.Errorf("transmission torrent-add: no torrent-added or torrent-duplicate in response")
	}

	if err := a.rpc(ctx, "torrent-start", map[string]any{"ids": []int{out.TorrentAdded.ID}}, nil); err != nil {
		log.Warn().Err(err).Str("infoHash", m.InfoHash).Msg("transmission: failed to start torrent after add")
	}

	log.Info().Str("infoHash", m.InfoHash).Str("savePath", dataPath).Msg("injected torrent into transmission")
	return domain.InjectSuccess, nil
}

func (a *transmissionAdapter) RecheckTorrent(ctx context.Context, infoHash string) error {
	return a.rpc(ctx, "torrent-verify", map[string]any{"ids": []string{infoHash}}, nil)
}

func (a *transmissionAdapter) ValidateConfig(ctx context.Context) error {
	return a.rpc(ctx, "session-get", nil, nil)
}
