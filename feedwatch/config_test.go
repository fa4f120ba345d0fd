package feedwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	src := `
page:
  url: https://example.com/feed
browser:
  headful: true
  resource_blocking: [images, fonts]
debounce:
  window: 500ms
feed:
  trigger_hashtag: "#VRC"
platform:
  base_url: https://worlds.example.com
api:
  url: https://worlds.example.com/api
  auth_cookie: auth=abc
cache:
  path: /tmp/cache.db
  ttl: 1h
admin:
  addr: 127.0.0.1:8787
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Page.URL != "https://example.com/feed" {
		t.Errorf("page url: %q", cfg.Page.URL)
	}
	if !cfg.Browser.Headful || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser: %+v", cfg.Browser)
	}
	if cfg.Debounce.Window != 500*time.Millisecond {
		t.Errorf("debounce window: %v", cfg.Debounce.Window)
	}
	if cfg.Feed.TriggerHashtag != "#VRC" {
		t.Errorf("trigger: %q", cfg.Feed.TriggerHashtag)
	}
	// Unset feed selectors get defaults.
	if cfg.Feed.PostSelector == "" {
		t.Error("post selector default missing")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("cache ttl: %v", cfg.Cache.TTL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("api timeout default: %v", cfg.API.Timeout)
	}
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Page.URL == "" || cfg.Platform.BaseURL == "" || cfg.API.URL == "" {
		t.Errorf("defaults missing: %+v", cfg)
	}
	if cfg.Debounce.Window != defaultDebounceWindow {
		t.Errorf("debounce default: %v", cfg.Debounce.Window)
	}
	if cfg.Settings.Path != "settings.yaml" {
		t.Errorf("settings path default: %q", cfg.Settings.Path)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile("/nonexistent/config.yaml"); err == nil {
		t.Error("missing file should error")
	}
}
