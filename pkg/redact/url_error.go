// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package redact strips sensitive query parameters from errors before they
// reach a log line. Torznab indexer requests carry the API key in the query
// string (§6), so any *url.Error surfaced by net/http's client embeds it
// verbatim — URLError rewrites that one field in place.
package redact

import (
	"errors"
	"net/url"
	"regexp"
)

var sensitiveParam = regexp.MustCompile(`(?i)\b(apikey|api_key|token|passkey|password)=[^&\s]*`)

// URLError walks err's chain for a *url.Error and returns a copy with its
// URL field redacted. Non-*url.Error values, and nil, are returned
// unchanged; the redaction never changes the error's type for errors.As.
func URLError(err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	redacted := &url.Error{
		Op:  urlErr.Op,
		URL: sensitiveParam.ReplaceAllString(urlErr.URL, "$1=REDACTED"),
		Err: urlErr.Err,
	}
	return redacted
}
