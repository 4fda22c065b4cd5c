// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"net/http"
	"time"

	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/store"
)

// Registry binds the persisted indexer store to the live Torznab client,
// implementing the classify-and-record half of §4.C ("test-connection
// issues a caps query and classifies the HTTP response").
type Registry struct {
	store   *store.IndexerStore
	client  *Client
	timeout time.Duration
}

func NewRegistry(indexerStore *store.IndexerStore, client *Client, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{store: indexerStore, client: client, timeout: timeout}
}

// TestConnection issues a caps query against idx and records the resulting
// status transition (§4.C): 401→INVALID_AUTH, 429→RATE_LIMITED with
// cooldown, 2xx→OK with caps persisted, other→UNKNOWN_ERROR.
func (r *Registry) TestConnection(ctx context.Context, idx *store.Indexer) (domain.IndexerStatus, error) {
	apiKey, err := r.store.GetDecryptedAPIKey(idx)
	if err != nil {
		return domain.IndexerStatusUnknownErr, err
	}

	caps, status, err := r.client.FetchCaps(ctx, idx, apiKey, r.timeout)
	switch status {
	case domain.IndexerStatusInvalidAuth:
		_ = r.store.MarkAuthFailed(ctx, idx.ID)
		return status, err
	case domain.IndexerStatusRateLimited:
		_, markErr := r.store.MarkRateLimited(ctx, idx.ID, time.Now())
		if markErr != nil {
			return status, markErr
		}
		return status, err
	case domain.IndexerStatusOK:
		if setErr := r.store.SetCaps(ctx, idx.ID, caps); setErr != nil {
			return status, setErr
		}
		if markErr := r.store.MarkSuccess(ctx, idx.ID); markErr != nil {
			return status, markErr
		}
		r.client.limiter.ClearCooldown(idx.ID)
		return status, nil
	default:
		_ = r.store.MarkUnknownError(ctx, idx.ID)
		return status, err
	}
}

// RecordSearchFailure applies the same status-transition rules as
// TestConnection after a failed search request, so a bulk pass and a
// connection test share one classification path.
func (r *Registry) RecordSearchFailure(ctx context.Context, idx *store.Indexer, status domain.IndexerStatus) error {
	switch status {
	case domain.IndexerStatusInvalidAuth:
		return r.store.MarkAuthFailed(ctx, idx.ID)
	case domain.IndexerStatusRateLimited:
		_, err := r.store.MarkRateLimited(ctx, idx.ID, time.Now())
		return err
	default:
		return r.store.MarkUnknownError(ctx, idx.ID)
	}
}

// RecordSearchSuccess resets an indexer's failure state after a clean pass.
func (r *Registry) RecordSearchSuccess(ctx context.Context, idx *store.Indexer) error {
	r.client.limiter.ClearCooldown(idx.ID)
	return r.store.MarkSuccess(ctx, idx.ID)
}

// EligibleIndexers returns active indexers not presently in cooldown,
// skipping query planning for them (§3: "while retry_after is set and in the
// future, the indexer is skipped by query planning but remains
// enumerable").
func (r *Registry) EligibleIndexers(ctx context.Context) ([]*store.Indexer, error) {
	all, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]*store.Indexer, 0, len(all))
	for _, idx := range all {
		if idx.InCooldown(now) {
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

// statusFromHTTP classifies a status code outside of a live request;
// nothing in this module calls it.
func statusFromHTTP(code int) domain.IndexerStatus {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.IndexerStatusInvalidAuth
	case code == http.StatusTooManyRequests:
		return domain.IndexerStatusRateLimited
	case code >= 200 && code < 300:
		return domain.IndexerStatusOK
	default:
		return domain.IndexerStatusUnknownErr
	}
}
