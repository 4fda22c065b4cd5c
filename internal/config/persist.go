// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// UpdateLogSettings rewrites the logPath/logMaxSize/logMaxBackups/logLevel
// keys in the TOML file at path to the given values and writes the result
// back, preserving everything else in the file byte for byte. It is used
// by the set-log-level CLI command so an operator can change logging
// without hand-editing config.toml.
func UpdateLogSettings(path, logLevel, logPath string, logMaxSize, logMaxBackups int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	updated := updateLogSettingsInTOML(string(raw), logLevel, logPath, logMaxSize, logMaxBackups)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config file %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write config file %q: %w", path, err)
	}
	return nil
}

// updateLogSettingsInTOML sets each of logPath/logMaxSize/logMaxBackups/
// logLevel in content, uncommenting the key's existing (possibly
// commented-out) line in place when present. Keys absent from content
// entirely are appended in a new trailing section instead of disturbing
// the rest of the file.
func updateLogSettingsInTOML(content, logLevel, logPath string, logMaxSize, logMaxBackups int) string {
	settings := []struct {
		key   string
		value string
	}{
		{"logPath", fmt.Sprintf("%q", logPath)},
		{"logMaxSize", fmt.Sprintf("%d", logMaxSize)},
		{"logMaxBackups", fmt.Sprintf("%d", logMaxBackups)},
		{"logLevel", fmt.Sprintf("%q", logLevel)},
	}

	var missing []string
	for _, s := range settings {
		line := fmt.Sprintf("%s = %s", s.key, s.value)
		pattern := regexp.MustCompile(`(?m)^[ \t]*#?[ \t]*` + regexp.QuoteMeta(s.key) + `[ \t]*=.*$`)
		if pattern.MatchString(content) {
			content = pattern.ReplaceAllString(content, line)
		} else {
			missing = append(missing, line)
		}
	}

	if len(missing) > 0 {
		content = strings.TrimRight(content, "\n") + "\n\n# Log settings\n" + strings.Join(missing, "\n") + "\n"
	}

	return content
}
