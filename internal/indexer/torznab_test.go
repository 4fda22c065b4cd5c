// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
<channel>
  <title>ExampleIndexer</title>
  <item>
    <title>Some.Show.S01E02.1080p.WEB-DL-GROUP</title>
    <guid>https://example.com/details/123</guid>
    <link>https://example.com/download/123</link>
    <pubDate>Fri, 06 Aug 2026 12:00:00 +0000</pubDate>
    <enclosure url="https://example.com/download/123" length="1073741824" type="application/x-bittorrent" />
    <category>5000</category>
    <torznab:attr name="seeders" value="12" />
    <torznab:attr name="infohash" value="AABBCCDDEEFF00112233445566778899AABBCCD" />
    <torznab:attr name="size" value="1073741824" />
  </item>
</channel>
</rss>`

const sampleCaps = `<?xml version="1.0" encoding="UTF-8"?>
<caps>
  <limits max="100" default="50" />
  <searching>
    <search available="yes" supportedParams="q" />
    <tv-search available="yes" supportedParams="q,season,ep,tvdbid" />
    <movie-search available="yes" supportedParams="q,imdbid" />
    <music-search available="no" supportedParams="" />
    <audio-search available="no" supportedParams="" />
    <book-search available="no" supportedParams="" />
  </searching>
</caps>`

func TestParseRSSExtractsCandidate(t *testing.T) {
	candidates, err := parseRSS(strings.NewReader(sampleRSS))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	require.Equal(t, "Some.Show.S01E02.1080p.WEB-DL-GROUP", c.Title)
	require.Equal(t, "https://example.com/download/123", c.Link)
	require.Equal(t, int64(1073741824), c.Size)
	require.Equal(t, "aabbccddeeff00112233445566778899aabbccd", c.InfoHash)
	require.Equal(t, "12", c.Attrs["seeders"])
	require.False(t, c.PubDate.IsZero())
}

func TestParseCapsExtractsSearchModes(t *testing.T) {
	caps, err := parseCaps(strings.NewReader(sampleCaps))
	require.NoError(t, err)

	require.True(t, caps.Search)
	require.True(t, caps.TV)
	require.True(t, caps.Movie)
	require.False(t, caps.Music)
	require.Equal(t, []string{"q", "season", "ep", "tvdbid"}, caps.IDCaps)
	require.Equal(t, 100, caps.Limits.Max)
	require.Equal(t, 50, caps.Limits.Default)
}

func TestAddAPIKeyAppendsOnlyOnce(t *testing.T) {
	require.Equal(t, "https://example.com/x?apikey=secret", addAPIKey("https://example.com/x", "secret"))
	require.Equal(t, "https://example.com/x?q=1&apikey=secret", addAPIKey("https://example.com/x?q=1", "secret"))
	require.Equal(t, "https://example.com/x?apikey=existing", addAPIKey("https://example.com/x?apikey=existing", "secret"))
}
