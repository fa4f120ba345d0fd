package feedwatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/worldlens/action"
	"github.com/hazyhaar/worldlens/feed"
)

// PageInjector applies DOM effects to the live tab: inserting control
// groups, reflecting control state, and clearing everything on a
// settings change. It is the rod-backed implementation of both
// feed.Injector and action.StateSink.
//
// The page is a virtualized list, so a post found during a scan may
// have been recycled by the time the fragment lands. Posts are located
// again inside the page: by permalink when the PostRef carries a
// status ID, by text snippet otherwise.
type PageInjector struct {
	page   *rod.Page
	cfg    feed.Config
	logger *slog.Logger
}

// NewPageInjector wraps a live page.
func NewPageInjector(page *rod.Page, cfg feed.Config, logger *slog.Logger) *PageInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageInjector{page: page, cfg: cfg, logger: logger}
}

// insertJS locates the post, checks it does not already carry a group,
// finds its action bar, and inserts the fragment before it. Returns a
// short status string for logging.
const insertJS = `(statusID, snippet, fragment, postSel, barSel) => {
	let post = null;
	if (statusID) {
		const a = document.querySelector('a[href*="/status/' + statusID + '"]');
		if (a) post = a.closest(postSel);
	}
	if (!post && snippet) {
		for (const cand of document.querySelectorAll(postSel)) {
			if (cand.textContent && cand.textContent.includes(snippet)) {
				post = cand;
				break;
			}
		}
	}
	if (!post) return 'gone';
	if (post.querySelector('.worldlens-group')) return 'present';
	const bar = post.querySelector(barSel);
	if (!bar) return 'nobar';
	bar.insertAdjacentHTML('beforebegin', fragment);
	return 'inserted';
}`

// InsertGroup implements feed.Injector. A post that left the page
// between scan and insertion is not an error: the next scan will see
// whatever replaced it.
func (p *PageInjector) InsertGroup(ctx context.Context, ref feed.PostRef, fragment string) error {
	res, err := p.page.Context(ctx).Eval(insertJS,
		ref.StatusID, ref.TextSnippet, fragment,
		p.cfg.PostSelector, p.cfg.ActionBarSelector)
	if err != nil {
		return fmt.Errorf("feedwatch: insert group: %w", err)
	}
	switch status := res.Value.Str(); status {
	case "inserted", "present", "gone":
		p.logger.Debug("feedwatch: insert group", "post", ref.ID, "status", status)
		return nil
	default:
		return fmt.Errorf("feedwatch: insert group: %s", status)
	}
}

// stateJS updates a control button in place. The original label is
// stashed in a data attribute on first transition so idle can restore
// it.
const stateJS = `(postID, control, state, label) => {
	const sel = '[data-worldlens-post="' + CSS.escape(postID) + '"]' +
		'[data-worldlens-control="' + control + '"]';
	const btn = document.querySelector(sel);
	if (!btn) return false;
	if (!btn.dataset.worldlensLabel) btn.dataset.worldlensLabel = btn.textContent;
	btn.setAttribute('data-worldlens-state', state);
	btn.disabled = state === 'busy';
	btn.textContent = label || btn.dataset.worldlensLabel;
	return true;
}`

// stateLabels maps transient states onto button text. Idle maps to ""
// which restores the control's original label.
var stateLabels = map[action.State]string{
	action.StateBusy:      "Searching...",
	action.StateSuccess:   "Opened",
	action.StateNeedsAuth: "Login Required",
	action.StateNotFound:  "Not Found",
}

// SetControlState implements action.StateSink. A missing button means
// the post scrolled away mid-action; the transition is dropped.
func (p *PageInjector) SetControlState(ctx context.Context, postID string, control feed.ControlKind, state action.State) {
	res, err := p.page.Context(ctx).Eval(stateJS,
		postID, string(control), string(state), stateLabels[state])
	if err != nil {
		p.logger.Warn("feedwatch: set control state failed",
			"post", postID, "state", state, "error", err)
		return
	}
	if !res.Value.Bool() {
		p.logger.Debug("feedwatch: control gone before state update",
			"post", postID, "state", state)
	}
}

// RemoveAllGroups strips every injected group from the page. Used when
// settings change: the registry resets and the next scan rebuilds
// controls under the new toggles.
func (p *PageInjector) RemoveAllGroups(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(
		`() => { document.querySelectorAll('.worldlens-group').forEach(g => g.remove()); }`)
	if err != nil {
		return fmt.Errorf("feedwatch: remove groups: %w", err)
	}
	return nil
}
