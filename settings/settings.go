// Package settings holds the user-configurable toggles and their change
// notification. The toggle set forms an epoch: every accepted update
// bumps a counter, and subscribers react by invalidating all processing
// state and rescanning. Ambient mutable globals are deliberately absent;
// consumers receive the current value explicitly.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Settings are the toggles the user controls.
type Settings struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	ShowOpenControl   bool `yaml:"show_open_control" json:"show_open_control"`
	ShowSearchControl bool `yaml:"show_search_control" json:"show_search_control"`
}

// Default returns the out-of-the-box settings: everything on.
func Default() Settings {
	return Settings{Enabled: true, ShowOpenControl: true, ShowSearchControl: true}
}

// Load reads settings from a YAML file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to a YAML file.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}

// Manager owns the current settings value and its epoch. Safe for
// concurrent use.
type Manager struct {
	mu     sync.Mutex
	cur    Settings
	epoch  int64
	subs   []chan Settings
	logger *slog.Logger
}

// NewManager creates a Manager seeded with initial settings (epoch 0).
func NewManager(initial Settings, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cur: initial, logger: logger}
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Epoch returns the current epoch counter.
func (m *Manager) Epoch() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Update installs new settings. An update identical to the current
// value is ignored; otherwise the epoch advances and every subscriber
// is notified with the new value.
func (m *Manager) Update(s Settings) {
	m.mu.Lock()
	if s == m.cur {
		m.mu.Unlock()
		return
	}
	m.cur = s
	m.epoch++
	epoch := m.epoch
	subs := make([]chan Settings, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Info("settings: updated",
		"epoch", epoch, "enabled", s.Enabled,
		"open", s.ShowOpenControl, "search", s.ShowSearchControl)

	for _, ch := range subs {
		// Latest-wins delivery: drop a stale pending value rather than
		// block the updater.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe returns a channel receiving each accepted update. Delivery
// is latest-wins; a slow subscriber sees only the most recent value.
func (m *Manager) Subscribe() <-chan Settings {
	ch := make(chan Settings, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// WatchFile re-loads the settings file whenever it is written, feeding
// changes through Update. Blocks until ctx is done. Editors that
// replace files on save produce Create events, so both are handled.
func (m *Manager) WatchFile(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: watching the file itself breaks on
	// rename-replace saves.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}

	base := filepath.Base(path)
	m.logger.Info("settings: watching file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(path)
			if err != nil {
				m.logger.Warn("settings: reload failed", "error", err)
				continue
			}
			m.Update(s)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("settings: watch error", "error", err)
		}
	}
}
