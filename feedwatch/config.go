package feedwatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/worldlens/feed"
)

// Config is the top-level daemon configuration.
type Config struct {
	Page     PageConfig     `yaml:"page"`
	Browser  BrowserConfig  `yaml:"browser"`
	Debounce DebounceConfig `yaml:"debounce"`
	Feed     feed.Config    `yaml:"feed"`
	Platform PlatformConfig `yaml:"platform"`
	API      APIConfig      `yaml:"api"`
	Cache    CacheConfig    `yaml:"cache"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Admin    AdminConfig    `yaml:"admin"`
	Settings SettingsConfig `yaml:"settings"`
}

// PageConfig identifies the feed page to watch.
type PageConfig struct {
	URL string `yaml:"url"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headful          bool          `yaml:"headful"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// DebounceConfig controls mutation batching.
type DebounceConfig struct {
	Window time.Duration `yaml:"window"`
}

// PlatformConfig locates the world platform's web frontend, used to
// build the destination URLs the controls open.
type PlatformConfig struct {
	BaseURL string `yaml:"base_url"`
}

// APIConfig locates the world platform's HTTP API.
type APIConfig struct {
	URL        string        `yaml:"url"`
	AuthCookie string        `yaml:"auth_cookie"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// ArchiveConfig controls detection archiving. Empty Path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig controls the local admin HTTP listener. Empty Addr
// disables it.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// SettingsConfig locates the runtime settings file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("feedwatch: parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Page.URL == "" {
		c.Page.URL = "https://x.com/home"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = defaultDebounceWindow
	}
	c.Feed.ApplyDefaults()
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = "https://vrchat.com/home"
	}
	if c.API.URL == "" {
		c.API.URL = "https://vrchat.com/api/1"
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Settings.Path == "" {
		c.Settings.Path = "settings.yaml"
	}
}
