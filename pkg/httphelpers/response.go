package httphelpers

import (
	"io"
	"net/http"
	"strings"
)

// NormalizeBasePath trims whitespace and trailing slashes and ensures a
// single leading slash, collapsing "/" and "///" down to "" so callers can
// treat the empty string as "no base path" uniformly.
func NormalizeBasePath(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.TrimRight(p, "/")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return "/" + p
}

// JoinBasePath joins an already-normalized base path with suffix, always
// returning an absolute path. An empty suffix returns basePath itself (or
// "/" when basePath is also empty).
func JoinBasePath(basePath, suffix string) string {
	suffix = strings.TrimPrefix(suffix, "/")
	if suffix == "" {
		if basePath == "" {
			return "/"
		}
		return basePath
	}
	return basePath + "/" + suffix
}

// DrainAndClose consumes the remaining response body and closes it to allow connection reuse.
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
