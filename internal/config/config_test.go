package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

func loadFrom(t *testing.T, content string) *Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		t.Fatalf("load config: %v", err)
	}

	cfg := &Config{Provider: "mpd"}
	if err := k.Unmarshal("", cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFrom(t, "")

	if cfg.Provider != "mpd" {
		t.Errorf("Provider = %q, want mpd", cfg.Provider)
	}
	if !cfg.NotificationsEnabled() {
		t.Error("notifications should default to enabled")
	}
	if !cfg.WidgetEnabled() {
		t.Error("widget should default to enabled")
	}
}

func TestLoad_MPDSection(t *testing.T) {
	cfg := loadFrom(t, `
fetch_limit = 5000

[mpd]
address = "10.0.0.5:6600"
password = "secret"

[notifications]
enabled = false

[log]
format = "json"
level = "debug"
`)

	if cfg.FetchLimit != 5000 {
		t.Errorf("FetchLimit = %d, want 5000", cfg.FetchLimit)
	}
	if cfg.MPD.Address != "10.0.0.5:6600" {
		t.Errorf("MPD.Address = %q", cfg.MPD.Address)
	}
	if cfg.MPD.Password != "secret" {
		t.Errorf("MPD.Password = %q", cfg.MPD.Password)
	}
	if cfg.NotificationsEnabled() {
		t.Error("notifications explicitly disabled, got enabled")
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := expandPath("~/widgets/now.json")
	want := filepath.Join(home, "widgets", "now.json")
	if got != want {
		t.Errorf("expandPath = %q, want %q", got, want)
	}

	if got := expandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("empty path should pass through, got %q", got)
	}
}
