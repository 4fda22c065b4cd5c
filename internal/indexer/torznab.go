// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package indexer implements the live half of the indexer registry and the
// Torznab client (Modules C/E): query planning, rate-limited HTTP execution,
// RSS-with-Torznab-extensions parsing, and snatching. It is a direct Torznab
// client rather than an aggregator-fronted (Jackett/Prowlarr) one, since
// every indexer in this system is already a Torznab endpoint.
package indexer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkg/errors"

	"github.com/xseedapp/xseed/internal/buildinfo"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/metafile"
	"github.com/xseedapp/xseed/internal/store"
	"github.com/xseedapp/xseed/pkg/httphelpers"
	"github.com/xseedapp/xseed/pkg/redact"
)

const defaultSearchLimit = 100

// Candidate is one parsed Torznab RSS item (§3/§4.E: "{title, guid, link,
// size, pubDate, infoHash?, categories}").
type Candidate struct {
	Title       string
	GUID        string
	Link        string
	Size        int64
	PubDate     time.Time
	InfoHash    string
	Categories  []string
	Attrs       map[string]string
}

// ErrNoDownloadLink is returned by Snatch when the response body does not
// decode as a valid bencoded metafile (§4.E).
var ErrNoDownloadLink = errors.New("response is not a valid torrent metafile")

// Client executes Torznab requests against a single registry of indexers,
// sharing one RateLimiter and one http.Client across all of them.
type Client struct {
	http    *http.Client
	limiter *RateLimiter
}

func NewClient(limiter *RateLimiter) *Client {
	return &Client{
		http:    &http.Client{},
		limiter: limiter,
	}
}

// FetchCaps issues a t=caps request and parses the Torznab capability
// document, used both by the `test-connection` operation and to populate
// an indexer's caps row after a manual add (§4.C).
func (c *Client) FetchCaps(ctx context.Context, idx *store.Indexer, apiKey string, timeout time.Duration) (store.Caps, domain.IndexerStatus, error) {
	endpoint, err := capsURL(idx.URL, apiKey)
	if err != nil {
		return store.Caps{}, domain.IndexerStatusUnknownErr, err
	}

	resp, status, err := c.doGet(ctx, idx.ID, endpoint, timeout, PriorityInteractive)
	if err != nil {
		return store.Caps{}, status, err
	}
	defer resp.Body.Close()

	caps, err := parseCaps(resp.Body)
	if err != nil {
		return store.Caps{}, domain.IndexerStatusUnknownErr, err
	}
	return caps, domain.IndexerStatusOK, nil
}

// Search executes a built query plan against idx and returns its parsed
// candidates. A 429 sets the rate limiter's cooldown and the caller is
// expected to also call store.IndexerStore.MarkRateLimited (§4.E: "429
// triggers the cooldown above and terminates this indexer for the pass").
func (c *Client) Search(ctx context.Context, idx *store.Indexer, apiKey string, plan Plan, limit int, timeout time.Duration, priority Priority) ([]Candidate, domain.IndexerStatus, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	endpoint, err := searchURL(idx.URL, apiKey, plan, limit)
	if err != nil {
		return nil, domain.IndexerStatusUnknownErr, err
	}

	resp, status, err := c.doGet(ctx, idx.ID, endpoint, timeout, priority)
	if err != nil {
		return nil, status, err
	}
	defer resp.Body.Close()

	candidates, err := parseRSS(resp.Body)
	if err != nil {
		return nil, domain.IndexerStatusUnknownErr, fmt.Errorf("parse torznab response from %s: %w", idx.Name, err)
	}
	return candidates, domain.IndexerStatusOK, nil
}

// doGet runs a GET with the rate limiter's pacing and up to two retries on
// classified transient failures (§7: transient errors are retried within a
// pass via avast/retry-go before counting against the indexer for good).
func (c *Client) doGet(ctx context.Context, indexerID int, endpoint string, timeout time.Duration, priority Priority) (*http.Response, domain.IndexerStatus, error) {
	if err := c.limiter.BeforeRequest(ctx, indexerID, WaitOptions{Priority: priority}); err != nil {
		return nil, domain.IndexerStatusUnknownErr, err
	}

	var resp *http.Response
	err := retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", buildinfo.UserAgent)
			r, doErr := c.http.Do(req)
			if doErr != nil {
				return doErr
			}
			if r.StatusCode >= 500 {
				httphelpers.DrainAndClose(r)
				return fmt.Errorf("transient status %d", r.StatusCode)
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return nil, domain.IndexerStatusUnknownErr, fmt.Errorf("request to indexer %d: %w", indexerID, redact.URLError(err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		httphelpers.DrainAndClose(resp)
		return nil, domain.IndexerStatusInvalidAuth, fmt.Errorf("indexer %d returned status %d", indexerID, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.SetCooldown(indexerID, time.Now().Add(domain.RateLimitBackoff(1)))
		httphelpers.DrainAndClose(resp)
		return nil, domain.IndexerStatusRateLimited, fmt.Errorf("indexer %d rate limited", indexerID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		httphelpers.DrainAndClose(resp)
		return nil, domain.IndexerStatusUnknownErr, fmt.Errorf("indexer %d returned status %d", indexerID, resp.StatusCode)
	default:
		return resp, domain.IndexerStatusOK, nil
	}
}

// Snatch fetches the torrent bytes behind a candidate's download link and
// validates them as a metafile (§4.E).
func (c *Client) Snatch(ctx context.Context, link, apiKey string, timeout time.Duration) (*metafile.Metafile, error) {
	if strings.TrimSpace(link) == "" {
		return nil, ErrNoDownloadLink
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, addAPIKey(link, apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("build snatch request: %w", err)
	}
	req.Header.Set("Accept", "application/x-bittorrent, application/octet-stream")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snatch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrNoDownloadLink, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read snatch body: %w", err)
	}

	m, err := metafile.DecodeBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDownloadLink, err)
	}
	return m, nil
}

// FuzzyScore ranks a candidate title against a searchee's normalized title
// for diagnostic ordering only; it never influences a matcher verdict (§4.E:
// result scoring is informational, Module F's checks remain authoritative).
func FuzzyScore(searcheeTitle, candidateTitle string) int {
	return fuzzy.RankMatchNormalizedFold(searcheeTitle, candidateTitle)
}

func addAPIKey(rawURL, apiKey string) string {
	if apiKey == "" || strings.Contains(rawURL, "apikey=") {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "apikey=" + url.QueryEscape(apiKey)
}

func capsURL(base, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse indexer url: %w", err)
	}
	q := u.Query()
	q.Set("t", "caps")
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func searchURL(base, apiKey string, plan Plan, limit int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse indexer url: %w", err)
	}
	q := u.Query()
	q.Set("t", string(plan.Kind))
	if plan.Term != "" {
		q.Set("q", plan.Term)
	}
	q.Set("limit", strconv.Itoa(limit))
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}
	for k, v := range plan.IDCaps {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// --- RSS + Torznab-extension XML shapes ---

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title     string        `xml:"title"`
	GUID      string        `xml:"guid"`
	Link      string        `xml:"link"`
	Comments  string        `xml:"comments"`
	PubDate   string        `xml:"pubDate"`
	Size      int64         `xml:"size"`
	Category  []string      `xml:"category"`
	Enclosure rssEnclosure  `xml:"enclosure"`
	Attrs     []torznabAttr `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func parseRSS(r io.Reader) ([]Candidate, error) {
	var doc rssDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	out := make([]Candidate, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		cand := Candidate{
			Title:      item.Title,
			GUID:       firstNonEmpty(item.GUID, item.Link),
			Link:       firstNonEmpty(item.Enclosure.URL, item.Link),
			Categories: item.Category,
			Attrs:      make(map[string]string, len(item.Attrs)),
		}
		if item.Size > 0 {
			cand.Size = item.Size
		} else if item.Enclosure.Length > 0 {
			cand.Size = item.Enclosure.Length
		}
		if item.PubDate != "" {
			if t, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
				cand.PubDate = t
			} else if t, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
				cand.PubDate = t
			}
		}
		for _, attr := range item.Attrs {
			name := strings.ToLower(attr.Name)
			cand.Attrs[name] = attr.Value
			switch name {
			case "infohash":
				cand.InfoHash = strings.ToLower(attr.Value)
			case "size":
				if v, err := strconv.ParseInt(attr.Value, 10, 64); err == nil && cand.Size == 0 {
					cand.Size = v
				}
			}
		}
		out = append(out, cand)
	}
	return out, nil
}

type capsDocument struct {
	XMLName   xml.Name      `xml:"caps"`
	Searching capsSearching `xml:"searching"`
	Limits    capsLimits    `xml:"limits"`
}

type capsSearching struct {
	Search     capsSearchMode `xml:"search"`
	TVSearch   capsSearchMode `xml:"tv-search"`
	MovieSearch capsSearchMode `xml:"movie-search"`
	MusicSearch capsSearchMode `xml:"music-search"`
	AudioSearch capsSearchMode `xml:"audio-search"`
	BookSearch  capsSearchMode `xml:"book-search"`
}

type capsSearchMode struct {
	Available     string `xml:"available,attr"`
	SupportedIDs  string `xml:"supportedParams,attr"`
}

type capsLimits struct {
	Max     int `xml:"max,attr"`
	Default int `xml:"default,attr"`
}

func (m capsSearchMode) enabled() bool { return m.Available == "yes" }

func (m capsSearchMode) idCaps() []string {
	if m.SupportedIDs == "" {
		return nil
	}
	parts := strings.Split(m.SupportedIDs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCaps(r io.Reader) (store.Caps, error) {
	var doc capsDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return store.Caps{}, fmt.Errorf("decode caps: %w", err)
	}

	caps := store.Caps{
		Search: doc.Searching.Search.enabled(),
		TV:     doc.Searching.TVSearch.enabled(),
		Movie:  doc.Searching.MovieSearch.enabled(),
		Music:  doc.Searching.MusicSearch.enabled(),
		Audio:  doc.Searching.AudioSearch.enabled(),
		Book:   doc.Searching.BookSearch.enabled(),
		IDCaps: doc.Searching.TVSearch.idCaps(),
	}
	caps.Limits.Max = doc.Limits.Max
	caps.Limits.Default = doc.Limits.Default
	return caps, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
