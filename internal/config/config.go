// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads and validates the runtime configuration. A Config
// value is built once at startup from defaults, an optional TOML file, and
// environment variables (in that order of increasing precedence), then
// passed immutably into every component's constructor — nothing in this
// program reaches back into a global config singleton.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xseedapp/xseed/internal/domain"
)

// Config is the fully resolved, frozen runtime configuration.
type Config struct {
	Host    string `toml:"host" mapstructure:"host"`
	Port    int    `toml:"port" mapstructure:"port"`
	NoPort  bool   `toml:"noPort" mapstructure:"noPort"`
	APIKey  string `toml:"apiKey" mapstructure:"apiKey"`
	Verbose bool   `toml:"verbose" mapstructure:"verbose"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	DataDir string `toml:"dataDir" mapstructure:"dataDir"`

	TorznabURLs []string `toml:"torznab" mapstructure:"torznab"`
	DataDirs    []string `toml:"dataDirs" mapstructure:"dataDirs"`
	TorrentDir  string   `toml:"torrentDir" mapstructure:"torrentDir"`
	OutputDir   string   `toml:"outputDir" mapstructure:"outputDir"`

	MatchMode             string   `toml:"matchMode" mapstructure:"matchMode"`
	FuzzySizeThreshold    float64  `toml:"fuzzySizeThreshold" mapstructure:"fuzzySizeThreshold"`
	IncludeNonVideos      bool     `toml:"includeNonVideos" mapstructure:"includeNonVideos"`
	IncludeSingleEpisodes bool     `toml:"includeSingleEpisodes" mapstructure:"includeSingleEpisodes"`
	MaxDataDepth          int      `toml:"maxDataDepth" mapstructure:"maxDataDepth"`
	BlockList             []string `toml:"blockList" mapstructure:"blockList"`
	VideoExtensions       []string `toml:"videoExtensions" mapstructure:"videoExtensions"`
	IgnorableExtensions   []string `toml:"ignorableExtensions" mapstructure:"ignorableExtensions"`

	LinkDir      string `toml:"linkDir" mapstructure:"linkDir"`
	LinkType     string `toml:"linkType" mapstructure:"linkType"`
	FlatLinking  bool   `toml:"flatLinking" mapstructure:"flatLinking"`

	Action              string `toml:"action" mapstructure:"action"`
	DuplicateCategories bool   `toml:"duplicateCategories" mapstructure:"duplicateCategories"`

	RTorrentRPCURL      string `toml:"rtorrentRpcUrl" mapstructure:"rtorrentRpcUrl"`
	QbittorrentRPCURL   string `toml:"qbittorrentRpcUrl" mapstructure:"qbittorrentRpcUrl"`
	TransmissionRPCURL  string `toml:"transmissionRpcUrl" mapstructure:"transmissionRpcUrl"`
	DelugeRPCURL        string `toml:"delugeRpcUrl" mapstructure:"delugeRpcUrl"`

	NotificationWebhookURL string `toml:"notificationWebhookUrl" mapstructure:"notificationWebhookUrl"`

	Delay              int    `toml:"delay" mapstructure:"delay"`
	SnatchTimeout      string `toml:"snatchTimeout" mapstructure:"snatchTimeout"`
	SearchTimeout      string `toml:"searchTimeout" mapstructure:"searchTimeout"`
	SearchLimit        int    `toml:"searchLimit" mapstructure:"searchLimit"`
	ExcludeOlder       int    `toml:"excludeOlder" mapstructure:"excludeOlder"`
	ExcludeRecentSearch int   `toml:"excludeRecentSearch" mapstructure:"excludeRecentSearch"`
	MaxIndexerConcurrency int `toml:"maxIndexerConcurrency" mapstructure:"maxIndexerConcurrency"`

	SonarrURLs []string `toml:"sonarr" mapstructure:"sonarr"`
	RadarrURLs []string `toml:"radarr" mapstructure:"radarr"`

	SearchCadence string `toml:"searchCadence" mapstructure:"searchCadence"`
	RSSCadence    string `toml:"rssCadence" mapstructure:"rssCadence"`
}

// Defaults returns a Config populated with the values documented in the CLI
// surface (§6): these are applied before the TOML file and environment are
// layered on top by Load.
func Defaults() Config {
	return Config{
		Host:                  "0.0.0.0",
		Port:                  2468,
		LogLevel:              "info",
		LogMaxSize:            50,
		LogMaxBackups:         3,
		DataDir:               defaultDataDir(),
		TorrentDir:            "",
		OutputDir:             "",
		MatchMode:             string(domain.MatchModeSafe),
		FuzzySizeThreshold:    0.02,
		IncludeNonVideos:      false,
		IncludeSingleEpisodes: false,
		MaxDataDepth:          2,
		VideoExtensions:       append([]string(nil), domain.DefaultVideoExtensions...),
		IgnorableExtensions:   append([]string(nil), domain.DefaultIgnorableExtensions...),
		LinkType:              string(domain.LinkHardlink),
		Action:                string(domain.ActionSave),
		Delay:                 10,
		SnatchTimeout:         "30s",
		SearchTimeout:         "30s",
		SearchLimit:           0,
		SearchCadence:         "1d",
		RSSCadence:            "30m",
		MaxIndexerConcurrency: 0,
	}
}

// Load reads the config file at path (if non-empty and present), overlays
// environment variables named XSEED_<KEY> (e.g. XSEED_HOST), and returns the
// resolved Config. An environment variable only takes effect for a key the
// config file also sets. It does not validate — call Validate separately so
// CLI flag overlays can happen in between.
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("XSEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("reading config file %q: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// Validate rejects a Config that the rest of the system cannot safely act
// on. A validation failure is CONFIG_INVALID (§7): fatal at startup, before
// any scheduling loop begins.
func (c *Config) Validate() error {
	if _, ok := domain.ParseMatchMode(c.MatchMode); !ok {
		return fmt.Errorf("invalid matchMode %q: must be safe, risky, or partial", c.MatchMode)
	}
	if c.FuzzySizeThreshold < 0 || c.FuzzySizeThreshold > 1 {
		return fmt.Errorf("invalid fuzzySizeThreshold %v: must be within [0,1]", c.FuzzySizeThreshold)
	}
	switch domain.Action(c.Action) {
	case domain.ActionSave, domain.ActionInject:
	default:
		return fmt.Errorf("invalid action %q: must be save or inject", c.Action)
	}
	switch domain.LinkType(c.LinkType) {
	case domain.LinkHardlink, domain.LinkSymlink, domain.LinkReflink:
	default:
		return fmt.Errorf("invalid linkType %q: must be hardlink, symlink, or reflink", c.LinkType)
	}
	if c.MaxDataDepth < 0 {
		return fmt.Errorf("invalid maxDataDepth %d: must be >= 0", c.MaxDataDepth)
	}
	if c.MaxIndexerConcurrency < 0 {
		return fmt.Errorf("invalid maxIndexerConcurrency %d: must be >= 0 (0 = unlimited)", c.MaxIndexerConcurrency)
	}
	if _, err := c.SnatchTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid snatchTimeout: %w", err)
	}
	if _, err := c.SearchTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid searchTimeout: %w", err)
	}
	if _, err := c.SearchCadenceDuration(); err != nil {
		return fmt.Errorf("invalid searchCadence: %w", err)
	}
	if _, err := c.RSSCadenceDuration(); err != nil {
		return fmt.Errorf("invalid rssCadence: %w", err)
	}
	if c.TorrentDir == "" && len(c.DataDirs) == 0 {
		return fmt.Errorf("at least one of torrentDir or dataDirs must be set")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir must be set")
	}
	return nil
}

func (c *Config) SnatchTimeoutDuration() (time.Duration, error) { return time.ParseDuration(c.SnatchTimeout) }
func (c *Config) SearchTimeoutDuration() (time.Duration, error) { return time.ParseDuration(c.SearchTimeout) }
func (c *Config) SearchCadenceDuration() (time.Duration, error) { return time.ParseDuration(normalizeDuration(c.SearchCadence)) }
func (c *Config) RSSCadenceDuration() (time.Duration, error)    { return time.ParseDuration(normalizeDuration(c.RSSCadence)) }

// normalizeDuration rewrites "1 day" style and bare "1d" style
// into something time.ParseDuration accepts, adding a "d" unit on top of the
// stdlib's h/m/s by expanding whole days to hours.
func normalizeDuration(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "days", "d")
	s = strings.ReplaceAll(s, "day", "d")
	s = strings.ReplaceAll(s, "hours", "h")
	s = strings.ReplaceAll(s, "hour", "h")
	s = strings.ReplaceAll(s, "minutes", "m")
	s = strings.ReplaceAll(s, "minute", "m")

	if idx := strings.IndexByte(s, 'd'); idx >= 0 {
		daysPart := s[:idx]
		rest := s[idx+1:]
		var days float64
		if _, err := fmt.Sscanf(daysPart, "%f", &days); err == nil {
			return fmt.Sprintf("%dh%s", int64(days*24), rest)
		}
	}
	return s
}

func defaultDataDir() string {
	return "."
}
