// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	content := `
host = "127.0.0.1"
port = 9999
torrentDir = "/torrents"
outputDir = "/output"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/torrents", cfg.TorrentDir)
	// Untouched fields keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.02, cfg.FuzzySizeThreshold)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Host, cfg.Host)
	assert.Equal(t, Defaults().Port, cfg.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`host = "from-file"`), 0644))

	t.Setenv("XSEED_HOST", "from-env")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Host)
}

func TestValidateRejectsMissingOutputDir(t *testing.T) {
	cfg := Defaults()
	cfg.TorrentDir = "/torrents"
	cfg.SnatchTimeout = "30s"
	cfg.SearchTimeout = "15s"
	cfg.SearchCadence = "1h"
	cfg.RSSCadence = "10m"
	require.Error(t, cfg.Validate())

	cfg.OutputDir = "/output"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMatchModeAndLinkType(t *testing.T) {
	cfg := Defaults()
	cfg.TorrentDir = "/torrents"
	cfg.OutputDir = "/output"
	cfg.SnatchTimeout = "30s"
	cfg.SearchTimeout = "15s"
	cfg.SearchCadence = "1h"
	cfg.RSSCadence = "10m"

	cfg.MatchMode = "bogus"
	require.Error(t, cfg.Validate())

	good := cfg
	good.MatchMode = "safe"
	good.LinkType = "bogus"
	require.Error(t, good.Validate())
}

func TestNormalizeDurationExpandsDayAndWordUnits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1d", "24h"},
		{"2 days", "48h"},
		{"1 day", "24h"},
		{"30m", "30m"},
		{"1h30m", "1h30m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeDuration(tt.in), tt.in)
	}
}

func TestSearchCadenceDurationUsesNormalizedDuration(t *testing.T) {
	cfg := Defaults()
	cfg.SearchCadence = "1 day"
	d, err := cfg.SearchCadenceDuration()
	require.NoError(t, err)
	assert.Equal(t, 24*60*60*1e9, float64(d))
}
