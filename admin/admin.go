// Package admin is the local control surface: a loopback HTTP listener
// exposing daemon status, the settings toggles, recent detections, and
// a manual rescan trigger. It is plumbing around the settings.Manager;
// every settings change flows through the same epoch machinery as a
// file edit.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/worldlens/archive"
	"github.com/hazyhaar/worldlens/feed"
	"github.com/hazyhaar/worldlens/settings"
)

// Watcher is the slice of the feed watcher the admin surface needs.
type Watcher interface {
	Registry() *feed.Registry
	LastScan() feed.ScanStats
	Rescan()
}

// Server serves the admin API.
type Server struct {
	settings *settings.Manager
	watcher  Watcher
	store    *archive.Store // nil when archiving is disabled
	logger   *slog.Logger
	started  time.Time
}

// NewServer creates a Server. store may be nil.
func NewServer(sm *settings.Manager, w Watcher, store *archive.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		settings: sm,
		watcher:  w,
		store:    store,
		logger:   logger,
		started:  time.Now(),
	}
}

// Router builds the chi router for the admin API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", s.handleStatus)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Post("/rescan", s.handleRescan)
	r.Get("/detections", s.handleDetections)

	return r
}

// ListenAndServe serves the admin API on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("admin: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Uptime   string             `json:"uptime"`
	Epoch    int64              `json:"epoch"`
	Settings settings.Settings  `json:"settings"`
	Registry feed.RegistryStats `json:"registry"`
	LastScan feed.ScanStats     `json:"last_scan"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Epoch:    s.settings.Epoch(),
		Settings: s.settings.Get(),
		Registry: s.watcher.Registry().Stats(),
		LastScan: s.watcher.LastScan(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "invalid settings body", http.StatusBadRequest)
		return
	}
	s.settings.Update(next)
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	s.watcher.Rescan()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rescan scheduled"})
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "archiving disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("admin: list detections failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []archive.Detection{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
