package feed

import (
	"context"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/worldlens/wref"
)

// Injector applies DOM effects to the live page. The pipeline itself
// never touches the page; it hands rendered fragments to this interface.
type Injector interface {
	// InsertGroup places the fragment immediately before the post's
	// action bar, using the PostRef locator hints to find the post in
	// the live page. Implementations must no-op when the post already
	// carries a group (defensive double-insertion guard).
	InsertGroup(ctx context.Context, ref PostRef, fragment string) error
}

// ArchiveFunc is called for every post that produced a control group.
// Optional; used to record detections.
type ArchiveFunc func(ctx context.Context, postID string, post *html.Node, ref wref.Ref)

// Processor evaluates a single post: normalize, gate, resolve, extract,
// decide controls, inject. Evaluation happens at most once per post per
// settings epoch, enforced through the Registry marker that is claimed
// synchronously before any other work.
type Processor struct {
	cfg       Config
	registry  *Registry
	extractor *wref.Extractor
	archive   ArchiveFunc
	logger    *slog.Logger
}

// NewProcessor creates a Processor. archive may be nil.
func NewProcessor(cfg Config, reg *Registry, ex *wref.Extractor, archive ArchiveFunc, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if ex == nil {
		ex = wref.NewExtractor()
	}
	return &Processor{
		cfg:       cfg,
		registry:  reg,
		extractor: ex,
		archive:   archive,
		logger:    logger,
	}
}

// Process evaluates one post. Returns true when a control group was
// injected. The order of the early returns is load-bearing: the marker
// is claimed first, so nothing after it can run twice for the same post
// within an epoch.
func (p *Processor) Process(ctx context.Context, ref PostRef, post *html.Node, t Toggles, inj Injector) bool {
	postID := ref.ID
	if !p.registry.MarkProcessed(postID) {
		return false
	}

	textNode := querySelector(post, p.cfg.TextSelector)
	if textNode == nil {
		return false
	}

	text := Normalize(textNode)
	if !containsFold(text, p.cfg.TriggerHashtag) {
		return false
	}

	var idRef, nameRef *wref.Ref
	if ref, ok := ResolveLink(post); ok {
		idRef = &ref
	}
	if ref, ok := p.extractor.Extract(text); ok {
		nameRef = &ref
	}
	if idRef == nil && nameRef == nil {
		return false
	}

	if p.registry.Group(postID) != nil {
		return false
	}

	group := BuildGroup(postID, idRef, nameRef, t)
	if group == nil {
		return false
	}

	// No action bar, no insertion point: discard silently rather than
	// float UI somewhere unrelated.
	if querySelector(post, p.cfg.ActionBarSelector) == nil {
		return false
	}

	if err := inj.InsertGroup(ctx, ref, group.RenderHTML()); err != nil {
		p.logger.Warn("feed: insert group failed", "post", postID, "error", err)
		return false
	}
	p.registry.SetGroup(postID, group)

	if p.archive != nil {
		p.archive(ctx, postID, post, group.Controls[0].Ref)
	}

	p.logger.Debug("feed: controls attached",
		"post", postID, "controls", len(group.Controls))
	return true
}
