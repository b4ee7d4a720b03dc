package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Provider   string `koanf:"provider"`    // music source backend, "mpd" is the only one built in
	FetchLimit int    `koanf:"fetch_limit"` // max library tracks to fetch (0 = no limit)

	// MPD connection settings
	MPD MPDConfig `koanf:"mpd"`

	// Desktop notifications on track change
	Notifications NotificationsConfig `koanf:"notifications"`

	// Now-playing widget export
	Widget WidgetConfig `koanf:"widget"`

	// Logging settings
	Log LogConfig `koanf:"log"`
}

// MPDConfig holds the MPD server connection settings.
type MPDConfig struct {
	Address  string `koanf:"address"`  // e.g., "localhost:6600"
	Password string `koanf:"password"` // empty when the server needs none
}

// NotificationsConfig controls desktop notifications.
type NotificationsConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

// WidgetConfig controls the now-playing file export.
type WidgetConfig struct {
	Enabled *bool  `koanf:"enabled"` // default: true
	Path    string `koanf:"path"`    // empty means the XDG state directory
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Format string `koanf:"format"` // "text" or "json" (default: "text")
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error" (default: "info")
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Provider: "mpd",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.MPD.Address == "" {
		cfg.MPD.Address = "localhost:6600"
	}

	// Expand ~ in the widget path
	if cfg.Widget.Path != "" {
		cfg.Widget.Path = expandPath(cfg.Widget.Path)
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cadence/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cadence", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// NotificationsEnabled returns whether desktop notifications are on,
// defaulting to true when unset.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications.Enabled == nil || *c.Notifications.Enabled
}

// WidgetEnabled returns whether the widget export is on, defaulting to
// true when unset.
func (c *Config) WidgetEnabled() bool {
	return c.Widget.Enabled == nil || *c.Widget.Enabled
}
