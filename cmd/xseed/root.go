// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Command xseed is the CLI surface described in spec §6: a config-driven
// cross-seed search/match/link pipeline, runnable one-shot (search, rss,
// inject) or as a scheduled daemon, plus diagnostic and maintenance
// subcommands, using a cobra command layout with one file per
// command/command-family.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/config"
	"github.com/xseedapp/xseed/internal/domain"
	"github.com/xseedapp/xseed/internal/logging"
)

// flagConfig holds every shared CLI flag before it is layered on top of
// the file/env-resolved config.Config as the highest-precedence source.
type flagConfig struct {
	configPath string

	host    string
	port    int
	noPort  bool
	apiKey  string
	verbose bool
	logPath string

	torznabURLs []string
	dataDirs    []string
	torrentDir  string
	outputDir   string

	matchMode             string
	fuzzySizeThreshold    float64
	includeNonVideos      bool
	includeSingleEpisodes bool
	maxDataDepth          int
	blockList             []string

	linkDir     string
	linkType    string
	flatLinking bool

	action              string
	duplicateCategories bool

	rtorrentRPCURL     string
	qbittorrentRPCURL  string
	transmissionRPCURL string
	delugeRPCURL       string

	notificationWebhookURL string

	delay               int
	snatchTimeout       string
	searchTimeout       string
	searchLimit         int
	excludeOlder        int
	excludeRecentSearch int
	maxIndexerConcurrency int

	sonarrURLs []string
	radarrURLs []string

	searchCadence string
	rssCadence    string
}

var flags flagConfig

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xseed",
		Short:         "Cross-seed search, match, and link pipeline for Torznab indexers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a TOML config file")
	pf.StringVar(&flags.host, "host", "", "HTTP admin API bind address")
	pf.IntVar(&flags.port, "port", 0, "HTTP admin API port (default 2468)")
	pf.BoolVar(&flags.noPort, "no-port", false, "Disable the HTTP admin API entirely")
	pf.StringVar(&flags.apiKey, "api-key", "", "Admin API bearer key")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&flags.logPath, "log-path", "", "Write logs to this file in addition to stderr")

	pf.StringSliceVar(&flags.torznabURLs, "torznab", nil, "Torznab indexer URLs (apikey=... query param optional)")
	pf.StringSliceVar(&flags.dataDirs, "data-dirs", nil, "Root directories to scan for data-origin searchees")
	pf.StringVar(&flags.torrentDir, "torrent-dir", "", "Directory of .torrent files to use as searchees")
	pf.StringVar(&flags.outputDir, "output-dir", "", "Directory artifact .torrent files are written to")

	pf.StringVar(&flags.matchMode, "match-mode", "", "safe | risky | partial")
	pf.Float64Var(&flags.fuzzySizeThreshold, "fuzzy-size-threshold", -1, "Fractional size tolerance in [0,1]")
	pf.BoolVar(&flags.includeNonVideos, "include-non-videos", false, "Treat non-video leaf directories as searchees too")
	pf.BoolVar(&flags.includeSingleEpisodes, "include-single-episodes", false, "Treat single-episode files as standalone searchees")
	pf.IntVar(&flags.maxDataDepth, "max-data-depth", -1, "Directory walk depth for --data-dirs (default 2)")
	pf.StringSliceVar(&flags.blockList, "block-list", nil, "Title substrings or infohashes to always reject")

	pf.StringVar(&flags.linkDir, "link-dir", "", "Destination root for data-origin link trees")
	pf.StringVar(&flags.linkType, "link-type", "", "hardlink | symlink | reflink")
	pf.BoolVar(&flags.flatLinking, "flat-linking", false, "Skip the per-tracker subdirectory under --link-dir")

	pf.StringVar(&flags.action, "action", "", "save | inject")
	pf.BoolVar(&flags.duplicateCategories, "duplicate-categories", false, "Allow the active client adapter to reuse a category per-tracker")

	pf.StringVar(&flags.rtorrentRPCURL, "rtorrent-rpc-url", "", "rTorrent XML-RPC URL")
	pf.StringVar(&flags.qbittorrentRPCURL, "qbittorrent-rpc-url", "", "qBittorrent WebUI URL")
	pf.StringVar(&flags.transmissionRPCURL, "transmission-rpc-url", "", "Transmission RPC URL")
	pf.StringVar(&flags.delugeRPCURL, "deluge-rpc-url", "", "Deluge JSON-RPC URL")

	pf.StringVar(&flags.notificationWebhookURL, "notification-webhook-url", "", "Webhook URL notified on a terminal match")

	pf.IntVar(&flags.delay, "delay", -1, "Seconds paused between an indexer's requests for one searchee (default 10)")
	pf.StringVar(&flags.snatchTimeout, "snatch-timeout", "", "Per-snatch HTTP timeout, e.g. 30s")
	pf.StringVar(&flags.searchTimeout, "search-timeout", "", "Per-search HTTP timeout, e.g. 30s")
	pf.IntVar(&flags.searchLimit, "search-limit", -1, "Max searchees processed per pass, 0 = unlimited")
	pf.IntVar(&flags.excludeOlder, "exclude-older", -1, "Minutes; skip searchees first seen before this cutoff")
	pf.IntVar(&flags.excludeRecentSearch, "exclude-recent-search", -1, "Minutes; skip searchees searched more recently than this")
	pf.IntVar(&flags.maxIndexerConcurrency, "max-indexer-concurrency", -1, "Max indexers queried concurrently per searchee, 0 = unlimited (default 0)")

	pf.StringSliceVar(&flags.sonarrURLs, "sonarr", nil, "Sonarr base URLs consulted for diagnostics")
	pf.StringSliceVar(&flags.radarrURLs, "radarr", nil, "Radarr base URLs consulted for diagnostics")

	pf.StringVar(&flags.searchCadence, "search-cadence", "", `Daemon bulk-search cadence, e.g. "1d"`)
	pf.StringVar(&flags.rssCadence, "rss-cadence", "", `Daemon RSS-scan cadence, e.g. "30m"`)

	root.AddCommand(
		newGenConfigCmd(),
		newClearCacheCmd(),
		newClearIndexerFailuresCmd(),
		newTestNotificationCmd(),
		newDiffCmd(),
		newTreeCmd(),
		newAPIKeyCmd(),
		newResetAPIKeyCmd(),
		newDaemonCmd(),
		newRSSCmd(),
		newSearchCmd(),
		newInjectCmd(),
		newVersionCmd(),
		newSetLogLevelCmd(),
	)

	return root
}

// resolveConfig loads defaults/file/env via internal/config.Load, overlays
// every flag the user actually set (cobra flags default to their zero
// value, so only Changed() flags are applied), then validates the result.
// A validation failure is CONFIG_INVALID: the command returns it directly
// so cobra's error path exits 1 (§6, §7).
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	pf := cmd.Flags()
	overlayString(pf, "host", &cfg.Host)
	overlayInt(pf, "port", &cfg.Port)
	overlayBool(pf, "no-port", &cfg.NoPort)
	overlayString(pf, "api-key", &cfg.APIKey)
	overlayBool(pf, "verbose", &cfg.Verbose)
	overlayString(pf, "log-path", &cfg.LogPath)

	overlayStringSlice(pf, "torznab", &cfg.TorznabURLs)
	overlayStringSlice(pf, "data-dirs", &cfg.DataDirs)
	overlayString(pf, "torrent-dir", &cfg.TorrentDir)
	overlayString(pf, "output-dir", &cfg.OutputDir)

	overlayString(pf, "match-mode", &cfg.MatchMode)
	overlayFloat64(pf, "fuzzy-size-threshold", &cfg.FuzzySizeThreshold)
	overlayBool(pf, "include-non-videos", &cfg.IncludeNonVideos)
	overlayBool(pf, "include-single-episodes", &cfg.IncludeSingleEpisodes)
	overlayInt(pf, "max-data-depth", &cfg.MaxDataDepth)
	overlayStringSlice(pf, "block-list", &cfg.BlockList)

	overlayString(pf, "link-dir", &cfg.LinkDir)
	overlayString(pf, "link-type", &cfg.LinkType)
	overlayBool(pf, "flat-linking", &cfg.FlatLinking)

	overlayString(pf, "action", &cfg.Action)
	overlayBool(pf, "duplicate-categories", &cfg.DuplicateCategories)

	overlayString(pf, "rtorrent-rpc-url", &cfg.RTorrentRPCURL)
	overlayString(pf, "qbittorrent-rpc-url", &cfg.QbittorrentRPCURL)
	overlayString(pf, "transmission-rpc-url", &cfg.TransmissionRPCURL)
	overlayString(pf, "deluge-rpc-url", &cfg.DelugeRPCURL)

	overlayString(pf, "notification-webhook-url", &cfg.NotificationWebhookURL)

	overlayInt(pf, "delay", &cfg.Delay)
	overlayString(pf, "snatch-timeout", &cfg.SnatchTimeout)
	overlayString(pf, "search-timeout", &cfg.SearchTimeout)
	overlayInt(pf, "search-limit", &cfg.SearchLimit)
	overlayInt(pf, "exclude-older", &cfg.ExcludeOlder)
	overlayInt(pf, "exclude-recent-search", &cfg.ExcludeRecentSearch)
	overlayInt(pf, "max-indexer-concurrency", &cfg.MaxIndexerConcurrency)

	overlayStringSlice(pf, "sonarr", &cfg.SonarrURLs)
	overlayStringSlice(pf, "radarr", &cfg.RadarrURLs)

	overlayString(pf, "search-cadence", &cfg.SearchCadence)
	overlayString(pf, "rss-cadence", &cfg.RSSCadence)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", domain.ErrConfigInvalid, err)
	}
	return cfg, nil
}

func initLogging(cfg config.Config) {
	logging.Init(logging.Options{
		Level:      cfg.LogLevel,
		LogPath:    cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Verbose:    cfg.Verbose,
	})
}
