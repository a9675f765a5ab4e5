package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg.Backend.URL != want.Backend.URL {
		t.Fatalf("backend url %q, want default %q", cfg.Backend.URL, want.Backend.URL)
	}
	if cfg.Election.Channel != want.Election.Channel {
		t.Fatalf("channel %q, want default %q", cfg.Election.Channel, want.Election.Channel)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 99
backend:
  url: https://chat.example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidBackendURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
backend:
  url: chat.example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "backend.url") {
		t.Fatalf("expected backend.url error, got %v", err)
	}
}

func TestLoadRejectsInvalidElectionTimings(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
election:
  heartbeat_ms: 5000
  liveness_ms: 1000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected timing error, got nil")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
backend:
  url: https://chat.example.com
election:
  channel: custom-leader
  settle_ms: 100
notifications:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "https://chat.example.com" {
		t.Fatalf("backend url %q", cfg.Backend.URL)
	}
	if cfg.Election.Channel != "custom-leader" || cfg.Election.SettleMS != 100 {
		t.Fatalf("election %+v", cfg.Election)
	}
	if cfg.Notifications.Enabled {
		t.Fatalf("notifications should be disabled")
	}
	timings, err := cfg.ElectionTimings()
	if err != nil {
		t.Fatalf("ElectionTimings: %v", err)
	}
	if timings.SettleWindow.Milliseconds() != 100 {
		t.Fatalf("settle window %v", timings.SettleWindow)
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "config_version: 1\n")
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("WriteDefault overwrite: %v", err)
	}
}
