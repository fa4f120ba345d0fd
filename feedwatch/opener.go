package feedwatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/worldlens/feedwatch/internal/browser"
)

// TabOpener opens destination pages in new tabs on the watched
// browser, so the feed tab itself never navigates away.
type TabOpener struct {
	mgr    *browser.Manager
	logger *slog.Logger
}

// NewTabOpener creates a TabOpener on the manager's browser.
func NewTabOpener(mgr *browser.Manager, logger *slog.Logger) *TabOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabOpener{mgr: mgr, logger: logger}
}

// Open implements action.Opener.
func (o *TabOpener) Open(ctx context.Context, pageURL string) error {
	b := o.mgr.Browser()
	if b == nil {
		return fmt.Errorf("feedwatch: no active browser")
	}
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return fmt.Errorf("feedwatch: open tab: %w", err)
	}
	// The tab belongs to the user now; activate it and let go.
	if _, err := page.Activate(); err != nil {
		o.logger.Debug("feedwatch: activate tab failed", "error", err)
	}
	o.logger.Info("feedwatch: opened page", "url", pageURL)
	return nil
}
