package feed

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/net/html"
)

// ScanStats summarise one scanner pass.
type ScanStats struct {
	Posts    int           `json:"posts"`
	Injected int           `json:"injected"`
	Pruned   int           `json:"pruned"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Scanner enumerates the posts currently in the document and dispatches
// each to the Processor. Safe to call repeatedly: idempotence comes
// from the Registry markers, not from the caller.
type Scanner struct {
	cfg       Config
	registry  *Registry
	processor *Processor
	logger    *slog.Logger
}

// NewScanner creates a Scanner sharing the processor's registry.
func NewScanner(cfg Config, reg *Registry, proc *Processor, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg, registry: reg, processor: proc, logger: logger}
}

// Scan processes every post matching the configured selector, in
// document order, and prunes registry entries for posts that left the
// document. A failure in one post never stops the rest: each post is
// independently fault-contained.
func (s *Scanner) Scan(ctx context.Context, doc *html.Node, t Toggles, inj Injector) ScanStats {
	start := time.Now()

	posts := querySelectorAll(doc, s.cfg.PostSelector)

	live := make(map[string]struct{}, len(posts))
	refs := make([]PostRef, len(posts))
	for i, post := range posts {
		refs[i] = MakePostRef(post)
		live[refs[i].ID] = struct{}{}
	}
	pruned := s.registry.Prune(live)

	injected := 0
	for i, post := range posts {
		if s.processOne(ctx, refs[i], post, t, inj) {
			injected++
		}
	}

	stats := ScanStats{
		Posts:    len(posts),
		Injected: injected,
		Pruned:   pruned,
		Elapsed:  time.Since(start),
	}
	s.logger.Debug("feed: scan complete",
		"posts", stats.Posts, "injected", stats.Injected,
		"pruned", stats.Pruned, "elapsed", stats.Elapsed)
	return stats
}

// processOne isolates a single post so a panic in pattern code or a
// malformed subtree cannot take down the scan loop.
func (s *Scanner) processOne(ctx context.Context, ref PostRef, post *html.Node, t Toggles, inj Injector) (injected bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("feed: post processing panicked", "post", ref.ID, "panic", r)
			injected = false
		}
	}()
	return s.processor.Process(ctx, ref, post, t, inj)
}
