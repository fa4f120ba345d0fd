// Package action owns the lifecycle of the injected controls: what a
// click does, the per-control state machine, and the asynchronous
// resolution against the world API.
//
// Open control: idle → busy → {success | needsAuth | notFound} → idle,
// with busy skipped entirely when the post already carries a resolved
// identifier. Terminal states auto-revert after a fixed delay. The
// search control is synchronous and has no state machine beyond the
// shared in-flight guard.
package action

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/hazyhaar/worldlens/feed"
	"github.com/hazyhaar/worldlens/worldapi"
	"github.com/hazyhaar/worldlens/wref"
)

// State is a control's visible state.
type State string

const (
	StateIdle      State = "idle"
	StateBusy      State = "busy"
	StateSuccess   State = "success"
	StateNeedsAuth State = "needs_auth"
	StateNotFound  State = "not_found"
)

// Opener opens a target page, typically in a new browser tab.
type Opener interface {
	Open(ctx context.Context, pageURL string) error
}

// StateSink receives control state transitions so the page can reflect
// them (label, disabled flag).
type StateSink interface {
	SetControlState(ctx context.Context, postID string, control feed.ControlKind, state State)
}

// Searcher is the slice of the world API the controller needs.
type Searcher interface {
	SearchWorld(ctx context.Context, name string) (worldapi.SearchResult, error)
}

// DefaultResetDelay is how long a terminal state stays visible before
// the control reverts to idle.
const DefaultResetDelay = 2 * time.Second

// Controller drives control activations. Safe for concurrent use; each
// (post, control) pair has its own in-flight guard so a re-entrant
// click during busy is ignored.
type Controller struct {
	baseURL    string
	api        Searcher
	opener     Opener
	sink       StateSink
	resetDelay time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithResetDelay overrides the terminal-state auto-reset delay.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) { c.resetDelay = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a Controller. baseURL is the platform page root
// the open/search URL templates hang off (e.g. "https://example.com/home").
func NewController(baseURL string, api Searcher, opener Opener, sink StateSink, opts ...Option) *Controller {
	c := &Controller{
		baseURL:    baseURL,
		api:        api,
		opener:     opener,
		sink:       sink,
		resetDelay: DefaultResetDelay,
		logger:     slog.Default(),
		inFlight:   make(map[string]bool),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OpenURL builds the direct world page URL.
func OpenURL(base, worldID string) string {
	return base + "/world/" + worldID
}

// SearchURL builds the world search page URL for a free-text name.
func SearchURL(base, name string) string {
	return base + "/search/worlds/" + url.PathEscape(name)
}

// Activate handles a click on a control. Synchronous; dispatch on a
// goroutine when called from an event loop.
func (c *Controller) Activate(ctx context.Context, group *feed.ControlGroup, kind feed.ControlKind) {
	if group == nil {
		return
	}
	ctl := group.Control(kind)
	if ctl == nil {
		return
	}

	key := group.PostID + "/" + string(kind)
	if !c.claim(key) {
		return
	}

	switch kind {
	case feed.ControlSearch:
		c.activateSearch(ctx, group.PostID, ctl)
		c.release(key)
	case feed.ControlOpen:
		c.activateOpen(ctx, group.PostID, ctl)
		// release happens when the terminal state reverts to idle.
		c.scheduleReset(ctx, group.PostID, kind, key)
	default:
		c.release(key)
	}
}

func (c *Controller) activateSearch(ctx context.Context, postID string, ctl *feed.Control) {
	target := SearchURL(c.baseURL, ctl.Ref.Value)
	if err := c.opener.Open(ctx, target); err != nil {
		c.logger.Warn("action: open search page failed", "post", postID, "error", err)
	}
}

func (c *Controller) activateOpen(ctx context.Context, postID string, ctl *feed.Control) {
	// Pre-resolved identifier: no network round trip.
	if ctl.Ref.Kind == wref.KindID {
		c.openWorld(ctx, postID, ctl.Ref.Value)
		return
	}

	c.sink.SetControlState(ctx, postID, feed.ControlOpen, StateBusy)

	res, err := c.api.SearchWorld(ctx, ctl.Ref.Value)
	switch {
	case err != nil:
		c.logger.Warn("action: world search failed",
			"post", postID, "name", ctl.Ref.Value, "error", err)
		c.sink.SetControlState(ctx, postID, feed.ControlOpen, StateNotFound)
	case res.NeedsAuth:
		c.sink.SetControlState(ctx, postID, feed.ControlOpen, StateNeedsAuth)
	case res.Success && res.WorldID != "":
		c.openWorld(ctx, postID, res.WorldID)
	default:
		c.sink.SetControlState(ctx, postID, feed.ControlOpen, StateNotFound)
	}
}

func (c *Controller) openWorld(ctx context.Context, postID, worldID string) {
	if err := c.opener.Open(ctx, OpenURL(c.baseURL, worldID)); err != nil {
		c.logger.Warn("action: open world failed", "post", postID, "error", err)
		c.sink.SetControlState(ctx, postID, feed.ControlOpen, StateNotFound)
		return
	}
	c.sink.SetControlState(ctx, postID, feed.ControlOpen, StateSuccess)
}

func (c *Controller) scheduleReset(ctx context.Context, postID string, kind feed.ControlKind, key string) {
	time.AfterFunc(c.resetDelay, func() {
		c.sink.SetControlState(ctx, postID, kind, StateIdle)
		c.release(key)
	})
}

func (c *Controller) claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[key] {
		return false
	}
	c.inFlight[key] = true
	return true
}

func (c *Controller) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}
