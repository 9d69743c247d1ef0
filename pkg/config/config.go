// Package config loads glossar settings from TOML config files.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all glossar settings.
type Config struct {
	// Database is the SQLite file path. Empty means the default under the
	// user's data directory.
	Database string `koanf:"database"`

	Search SearchConfig `koanf:"search"`
	Remote RemoteConfig `koanf:"remote"`
}

// SearchConfig controls the matcher's fuzzy fallback tier.
type SearchConfig struct {
	Fuzzy     *bool `koanf:"fuzzy"`     // enable the fuzzy tier (default: true)
	Tolerance int   `koanf:"tolerance"` // max edit distance (default: 2)
}

// RemoteConfig holds the snapshot sync endpoint (enables push/pull when configured).
type RemoteConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// Load reads config files in priority order (last wins) and applies defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Database == "" {
		cfg.Database = defaultDatabasePath()
	} else {
		cfg.Database = expandPath(cfg.Database)
	}

	return cfg, nil
}

func configPaths() []string {
	return []string{
		// 1. XDG config dir (usually ~/.config/glossar/config.toml)
		filepath.Join(xdg.ConfigHome, "glossar", "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func defaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "glossar", "glossar.db")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasRemote returns true if snapshot sync is configured.
func (c *Config) HasRemote() bool {
	return c.Remote.URL != ""
}

// SearchSettings returns the fuzzy search settings with defaults applied.
func (c *Config) SearchSettings() (fuzzy bool, tolerance int) {
	fuzzy = true
	if c.Search.Fuzzy != nil {
		fuzzy = *c.Search.Fuzzy
	}
	tolerance = c.Search.Tolerance
	if tolerance <= 0 {
		tolerance = 2
	}
	return fuzzy, tolerance
}
