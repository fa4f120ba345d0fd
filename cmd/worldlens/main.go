// Command worldlens watches a social feed page in a controlled browser,
// detects virtual-world mentions in posts, and injects open/search
// controls next to them.
//
// Usage:
//
//	worldlens -config worldlens.yaml
//	worldlens -config worldlens.yaml -settings settings.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/worldlens/admin"
	"github.com/hazyhaar/worldlens/archive"
	"github.com/hazyhaar/worldlens/feed"
	"github.com/hazyhaar/worldlens/feedwatch"
	"github.com/hazyhaar/worldlens/settings"
	"github.com/hazyhaar/worldlens/worldapi"
)

func main() {
	configPath := flag.String("config", "worldlens.yaml", "path to worldlens.yaml config file")
	settingsPath := flag.String("settings", "", "path to settings.yaml (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *settingsPath); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.Error("worldlens: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, settingsPath string) error {
	cfg, err := feedwatch.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if settingsPath != "" {
		cfg.Settings.Path = settingsPath
	}

	// Settings: file-seeded when present, defaults otherwise. The file
	// keeps being watched so edits take effect live.
	initial, err := settings.Load(cfg.Settings.Path)
	if err != nil {
		logger.Info("worldlens: settings file missing, using defaults",
			"path", cfg.Settings.Path)
		initial = settings.Default()
	}
	sm := settings.NewManager(initial, logger)

	// World API client with its search cache.
	apiOpts := []worldapi.ClientOption{
		worldapi.WithTimeout(cfg.API.Timeout),
		worldapi.WithLogger(logger),
	}
	if cfg.API.AuthCookie != "" {
		apiOpts = append(apiOpts, worldapi.WithAuthCookie(cfg.API.AuthCookie))
	}
	if cfg.Cache.Path != "" {
		cache, err := worldapi.OpenCache(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("open search cache: %w", err)
		}
		defer cache.Close()
		apiOpts = append(apiOpts, worldapi.WithCache(cache))
	}
	api := worldapi.NewClient(cfg.API.URL, apiOpts...)

	if status, err := api.CheckAuthentication(ctx); err != nil {
		logger.Warn("worldlens: auth check failed", "error", err)
	} else if !status.Authenticated {
		logger.Warn("worldlens: not authenticated, name searches will prompt for login")
	}

	// Detection archive, when configured.
	var (
		store     *archive.Store
		archiveFn feed.ArchiveFunc
	)
	if cfg.Archive.Path != "" {
		store, err = archive.Open(cfg.Archive.Path, logger)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
		archiveFn = store.Func()
	}

	watcher := feedwatch.New(cfg, sm, api, archiveFn, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(ctx) })
	g.Go(func() error { return sm.WatchFile(ctx, cfg.Settings.Path) })
	if cfg.Admin.Addr != "" {
		adminSrv := admin.NewServer(sm, watcher, store, logger)
		g.Go(func() error { return adminSrv.ListenAndServe(ctx, cfg.Admin.Addr) })
	}

	return g.Wait()
}
