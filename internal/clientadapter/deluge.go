// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package clientadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/searchee"
)

// delugeAdapter speaks Deluge's WebUI JSON-RPC protocol: a plain JSON-RPC
// 1.0-shaped call (method, params, id) posted to /json, authenticated with
// a session cookie obtained via auth.login rather than HTTP basic auth. As
// with transmissionAdapter, no Deluge client library appears anywhere in
// the retrieval pack, so this is a hand-rolled net/http + encoding/json
// client scoped to the adapter contract's handful of calls. reqID is
// incremented with atomic.Int64 because the pipeline's searchee workers
// call the adapter concurrently.
type delugeAdapter struct {
	endpoint            string
	password            string
	http                *http.Client
	duplicateCategories bool
	reqID               atomic.Int64
}

func newDelugeAdapter(ctx context.Context, rpcURL string, duplicateCategories bool) (Adapter, error) {
	host, _, password, err := splitRPCURL(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("deluge rpc url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("deluge cookie jar: %w", err)
	}
	a := &delugeAdapter{
		endpoint:            strings.TrimSuffix(host, "/") + "/json",
		password:            password,
		http:                &http.Client{Jar: jar},
		duplicateCategories: duplicateCategories,
	}
	var loggedIn bool
	if err := a.rpc(ctx, "auth.login", []any{password}, &loggedIn); err != nil {
		return nil, fmt.Errorf("deluge login: %w", err)
	}
	if !loggedIn {
		return nil, fmt.Errorf("deluge login: rejected password")
	}
	if err := a.ValidateConfig(ctx); err != nil {
		return nil, fmt.Errorf("deluge connect: %w", err)
	}
	return a, nil
}

type delugeRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

type delugeError struct {
	Message string `json:"message"`
}

type delugeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *delugeError    `json:"error"`
	ID     int             `json:"id"`
}

func (a *delugeAdapter) rpc(ctx context.Context, method string, params []any, out any) error {
	id := int(a.reqID.Add(1))
	body, err := json.Marshal(delugeRequest{Method: method, Params: params, ID: id})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deluge rpc %s: status %d", method, resp.StatusCode)
	}

	var dr delugeResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("decode deluge response: %w", err)
	}
	if dr.Error != nil {
		return fmt.Errorf("deluge rpc %s failed: %s", method, dr.Error.Message)
	}
	if out != nil && len(dr.Result) > 0 {
		if err := json.Unmarshal(dr.Result, out); err != nil {
			return fmt.Errorf("decode deluge result: %w", err)
		}
	}
	return nil
}

func (a *delugeAdapter) IsTorrentComplete(ctx context.Context, infoHash string) (bool, error) {
	var out struct {
		Progress float64 `json:"progress"`
	}
	err := a.rpc(ctx, "core.get_torrent_status", []any{strings.ToLower(infoHash), []string{"progress"}}, &out)
	if err != nil {
		return false, err
	}
	return out.Progress >= 100, nil
}

func (a *delugeAdapter) GetAllTorrents(ctx context.Context) ([]Torrent, error) {
	var out map[string]struct {
		Label    string   `json:"label"`
		SavePath string   `json:"save_path"`
		Trackers []string `json:"trackers"`
	}
	err := a.rpc(ctx, "core.get_torrents_status", []any{map[string]any{}, []string{"label", "save_path", "trackers"}}, &out)
	if err != nil {
		return nil, err
	}
	result := make([]Torrent, 0, len(out))
	for hash, t := range out {
		tr := Torrent{InfoHash: strings.ToLower(hash), Category: t.Label, SavePath: t.SavePath}
		for _, announce := range t.Trackers {
			tr.Trackers = append(tr.Trackers, []string{announce})
		}
		result = append(result, tr)
	}
	return result, nil
}

func (a *delugeAdapter) GetDownloadDir(ctx context.Context, m *metafile.Metafile, onlyCompleted bool) (string, domain.SaveDirResult, error) {
	var out struct {
		SavePath string  `json:"save_path"`
		Progress float64 `json:"progress"`
	}
	err := a.rpc(ctx, "core.get_torrent_status", []any{strings.ToLower(m.InfoHash), []string{"save_path", "progress"}}, &out)
	if err != nil {
		if isDelugeNotFoundErr(err) {
			return "", domain.SaveDirNotFound, nil
		}
		return "", domain.SaveDirUnknownError, err
	}
	if out.SavePath == "" {
		return "", domain.SaveDirNotFound, nil
	}
	if onlyCompleted && out.Progress < 100 {
		return "", domain.SaveDirTorrentNotComplete, nil
	}
	return out.SavePath, "", nil
}

// Inject hands Deluge the raw metafile bytes base64-encoded, the form
// core.add_torrent_file expects, with seed_mode set so Deluge trusts the
// data is already fully present instead of rehashing it like a fresh
// download, mirroring the qBittorrent adapter's skip_checking.
func (a *delugeAdapter) Inject(ctx context.Context, m *metafile.Metafile, s *searchee.Searchee, verdict domain.Verdict, dataPath string) (domain.InjectResult, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return domain.InjectFailure, fmt.Errorf("encode metafile: %w", err)
	}

	options := map[string]any{
		"download_location": dataPath,
		"seed_mode":         true,
		"add_paused":        false,
	}
	if a.duplicateCategories {
		options["label"] = s.Name
	}

	var result any
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	filename := strings.ToLower(m.InfoHash) + ".torrent"
	err := a.rpc(ctx, "core.add_torrent_file", []any{filename, encoded, options}, &result)
	if err != nil {
		return domain.InjectFailure, err
	}
	if result == nil || result == false {
		return domain.InjectAlreadyExists, nil
	}

	log.Info().Str("infoHash", m.InfoHash).Str("savePath", dataPath).Msg("injected torrent into deluge")
	return domain.InjectSuccess, nil
}

func (a *delugeAdapter) RecheckTorrent(ctx context.Context, infoHash string) error {
	return a.rpc(ctx, "core.force_recheck", []any{[]string{strings.ToLower(infoHash)}}, nil)
}

func (a *delugeAdapter) ValidateConfig(ctx context.Context) error {
	var version string
	return a.rpc(ctx, "daemon.info", []any{}, &version)
}

func isDelugeNotFoundErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "invalid torrent id")
}
