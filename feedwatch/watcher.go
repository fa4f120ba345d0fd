// Package feedwatch runs the live side of the pipeline: it owns the
// Chrome tab on the feed page, injects the page-side observer script,
// and turns its mutation and click reports into scans and control
// activations. All decisions stay in the feed and action packages;
// feedwatch is transport between the page and them.
package feedwatch

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"

	"github.com/hazyhaar/worldlens/action"
	"github.com/hazyhaar/worldlens/feed"
	"github.com/hazyhaar/worldlens/feedwatch/internal/browser"
	"github.com/hazyhaar/worldlens/settings"
)

//go:embed observer.js
var observerJS string

// bindingName is the page-to-Go channel the observer script calls.
const bindingName = "__worldlens_emit"

// pageEvent is one report from the injected script.
type pageEvent struct {
	Kind    string `json:"kind"` // mutation | click
	Added   int    `json:"added"`
	Post    string `json:"post"`
	Control string `json:"control"`
}

// Watcher orchestrates the browser, the injected observer, and the
// single event loop that serialises scans, clicks, and settings
// changes.
type Watcher struct {
	cfg      *Config
	settings *settings.Manager
	api      action.Searcher
	logger   *slog.Logger

	mgr      *browser.Manager
	registry *feed.Registry
	scanner  *feed.Scanner

	// Rebuilt on every page (re)open.
	tab        *browser.Tab
	injector   *PageInjector
	controller *action.Controller

	deb      *Debouncer
	events   chan pageEvent
	rescanCh chan struct{}
	reopenCh chan struct{}

	statsMu  sync.Mutex
	lastScan feed.ScanStats
}

// New creates a Watcher. archive may be nil.
func New(cfg *Config, sm *settings.Manager, api action.Searcher, archive feed.ArchiveFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	registry := feed.NewRegistry()
	processor := feed.NewProcessor(cfg.Feed, registry, nil, archive, logger)
	scanner := feed.NewScanner(cfg.Feed, registry, processor, logger)

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headful:          cfg.Browser.Headful,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})

	return &Watcher{
		cfg:      cfg,
		settings: sm,
		api:      api,
		logger:   logger,
		mgr:      mgr,
		registry: registry,
		scanner:  scanner,
		deb:      NewDebouncer(cfg.Debounce.Window),
		events:   make(chan pageEvent, 256),
		rescanCh: make(chan struct{}, 1),
		reopenCh: make(chan struct{}, 1),
	}
}

// Registry exposes the post registry for the admin surface.
func (w *Watcher) Registry() *feed.Registry { return w.registry }

// LastScan returns the stats of the most recent scan.
func (w *Watcher) LastScan() feed.ScanStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.lastScan
}

// Rescan requests a full scan outside the mutation flow. Non-blocking;
// collapses with an already-pending request.
func (w *Watcher) Rescan() {
	select {
	case w.rescanCh <- struct{}{}:
	default:
	}
}

// Run starts the browser, opens the feed page, and blocks in the event
// loop until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("feedwatch: start browser: %w", err)
	}
	defer w.mgr.Close()

	if err := w.openPage(ctx); err != nil {
		return err
	}
	w.mgr.OnRecycle(func(*rod.Browser) {
		select {
		case w.reopenCh <- struct{}{}:
		default:
		}
	})

	w.scan(ctx)

	settingsCh := w.settings.Subscribe()
	w.logger.Info("feedwatch: watching feed", "url", w.cfg.Page.URL)

	for {
		select {
		case <-ctx.Done():
			w.deb.Stop()
			return ctx.Err()

		case ev := <-w.events:
			w.handleEvent(ctx, ev)

		case <-w.deb.C():
			w.deb.Stop()
			w.scan(ctx)

		case s := <-settingsCh:
			w.applySettings(ctx, s)

		case <-w.rescanCh:
			w.scan(ctx)

		case <-w.reopenCh:
			// The browser was recycled: fresh page, no injected state.
			if err := w.openPage(ctx); err != nil {
				w.logger.Error("feedwatch: reopen after recycle failed", "error", err)
				continue
			}
			w.registry.Reset()
			w.scan(ctx)
		}
	}
}

// openPage opens the feed tab, wires the injector and controller to it,
// and installs the observer script.
func (w *Watcher) openPage(ctx context.Context) error {
	if w.tab != nil {
		w.tab.Close()
	}

	tab, err := browser.OpenTab(ctx, w.mgr, w.cfg.Page.URL)
	if err != nil {
		return fmt.Errorf("feedwatch: open feed page: %w", err)
	}
	w.tab = tab
	w.injector = NewPageInjector(tab.Page, w.cfg.Feed, w.logger)
	w.controller = action.NewController(
		w.cfg.Platform.BaseURL, w.api,
		NewTabOpener(w.mgr, w.logger), w.injector,
		action.WithLogger(w.logger))

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(tab.Page); err != nil {
		w.logger.Warn("feedwatch: add binding failed (may already exist)", "error", err)
	}
	go w.listenBinding(ctx, tab.Page)

	if _, err := tab.Page.Eval(observerJS); err != nil {
		return fmt.Errorf("feedwatch: inject observer: %w", err)
	}

	w.logger.Info("feedwatch: page ready", "url", w.cfg.Page.URL)
	return nil
}

// listenBinding forwards observer script reports into the event loop.
// Overflow drops mutation events silently: the debouncer makes any
// surviving one sufficient to schedule the scan.
func (w *Watcher) listenBinding(ctx context.Context, page *rod.Page) {
	page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var ev pageEvent
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
			w.logger.Warn("feedwatch: bad observer payload", "error", err)
			return
		}
		select {
		case w.events <- ev:
		default:
			w.logger.Debug("feedwatch: event dropped", "kind", ev.Kind)
		}
	})()
}

func (w *Watcher) handleEvent(ctx context.Context, ev pageEvent) {
	switch ev.Kind {
	case "mutation":
		if w.settings.Get().Enabled {
			w.deb.Trigger()
		}
	case "click":
		group := w.registry.Group(ev.Post)
		if group == nil {
			w.logger.Warn("feedwatch: click on unknown group",
				"post", ev.Post, "control", ev.Control)
			return
		}
		// Activation does network I/O; keep it off the event loop. The
		// controller's in-flight guard absorbs re-entrant clicks.
		go w.controller.Activate(ctx, group, feed.ControlKind(ev.Control))
	default:
		w.logger.Warn("feedwatch: unknown event kind", "kind", ev.Kind)
	}
}

// scan serialises the live DOM, parses it, and runs the detection
// pipeline over the result.
func (w *Watcher) scan(ctx context.Context) {
	s := w.settings.Get()
	if !s.Enabled {
		return
	}

	src, err := w.tab.HTML(ctx)
	if err != nil {
		w.logger.Error("feedwatch: serialise page failed", "error", err)
		return
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		w.logger.Error("feedwatch: parse page failed", "error", err)
		return
	}

	toggles := feed.Toggles{
		ShowOpenControl:   s.ShowOpenControl,
		ShowSearchControl: s.ShowSearchControl,
	}
	stats := w.scanner.Scan(ctx, doc, toggles, w.injector)

	w.statsMu.Lock()
	w.lastScan = stats
	w.statsMu.Unlock()
}

// applySettings handles an epoch change: all injected controls are
// removed, processing state is invalidated, and when still enabled the
// feed is rescanned under the new toggles.
func (w *Watcher) applySettings(ctx context.Context, s settings.Settings) {
	w.logger.Info("feedwatch: settings changed",
		"epoch", w.settings.Epoch(), "enabled", s.Enabled)

	if err := w.injector.RemoveAllGroups(ctx); err != nil {
		w.logger.Warn("feedwatch: remove groups failed", "error", err)
	}
	w.registry.Reset()

	if s.Enabled {
		w.scan(ctx)
	} else {
		w.deb.Stop()
	}
}
