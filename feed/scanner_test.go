package feed

import (
	"context"
	"testing"

	"golang.org/x/net/html"
)

const feedDoc = `
<main>
	<article data-testid="tweet">
		<a href="/a/status/1">1h</a>
		<div data-testid="tweetText">#VRChat World: Alpha</div>
		<div role="group"></div>
	</article>
	<article data-testid="tweet">
		<a href="/b/status/2">2h</a>
		<div data-testid="tweetText">no worlds here</div>
		<div role="group"></div>
	</article>
	<article data-testid="tweet">
		<a href="/c/status/3">3h</a>
		<div data-testid="tweetText">#VRChat 🌐 Beta</div>
		<div role="group"></div>
	</article>
</main>`

func scannerSetup(t *testing.T) (*Scanner, *Registry, *fakeInjector) {
	t.Helper()
	var cfg Config
	cfg.ApplyDefaults()
	reg := NewRegistry()
	proc := NewProcessor(cfg, reg, nil, nil, nil)
	return NewScanner(cfg, reg, proc, nil), reg, newFakeInjector()
}

func docNode(t *testing.T, src string) *html.Node {
	t.Helper()
	return parseFragment(t, src)
}

func TestScan_QualifyingPostsOnly(t *testing.T) {
	s, _, inj := scannerSetup(t)
	stats := s.Scan(context.Background(), docNode(t, feedDoc), allOn, inj)

	if stats.Posts != 3 {
		t.Errorf("posts: got %d, want 3", stats.Posts)
	}
	if stats.Injected != 2 {
		t.Errorf("injected: got %d, want 2", stats.Injected)
	}
	if len(inj.inserts["status:2"]) != 0 {
		t.Error("non-qualifying post was decorated")
	}
}

func TestScan_RepeatIsNoop(t *testing.T) {
	s, _, inj := scannerSetup(t)
	doc := docNode(t, feedDoc)

	s.Scan(context.Background(), doc, allOn, inj)
	stats := s.Scan(context.Background(), doc, allOn, inj)

	if stats.Injected != 0 {
		t.Errorf("second scan injected %d, want 0", stats.Injected)
	}
	if len(inj.inserts["status:1"]) != 1 || len(inj.inserts["status:3"]) != 1 {
		t.Error("repeat scan duplicated control groups")
	}
}

func TestScan_PrunesDepartedPosts(t *testing.T) {
	s, reg, inj := scannerSetup(t)
	s.Scan(context.Background(), docNode(t, feedDoc), allOn, inj)

	// The virtualized list scrolled: only post 3 remains.
	remaining := `
	<main>
		<article data-testid="tweet">
			<a href="/c/status/3">3h</a>
			<div data-testid="tweetText">#VRChat 🌐 Beta</div>
			<div role="group"></div>
		</article>
	</main>`
	stats := s.Scan(context.Background(), docNode(t, remaining), allOn, inj)

	if stats.Pruned != 2 {
		t.Errorf("pruned: got %d, want 2", stats.Pruned)
	}
	if reg.Processed("status:1") {
		t.Error("departed post should be forgotten")
	}
	if !reg.Processed("status:3") {
		t.Error("remaining post should stay marked")
	}
}

func TestScan_SettingsEpochReset(t *testing.T) {
	// Toggling the search control off and on: each epoch rebuilds the
	// group wholesale, never duplicating the open control.
	s, reg, inj := scannerSetup(t)
	doc := docNode(t, feedDoc)

	s.Scan(context.Background(), doc, allOn, inj)
	g := reg.Group("status:1")
	if g == nil || g.Control(ControlSearch) == nil {
		t.Fatal("first epoch should attach a search control")
	}

	// Epoch change: groups removed from the page, registry reset.
	reg.Reset()
	inj.inserts = make(map[string][]string)
	s.Scan(context.Background(), doc, Toggles{ShowOpenControl: true}, inj)

	g = reg.Group("status:1")
	if g == nil {
		t.Fatal("second epoch should rebuild the group")
	}
	if g.Control(ControlSearch) != nil {
		t.Error("search control should be gone after toggle off")
	}
	if g.Control(ControlOpen) == nil {
		t.Error("open control should survive")
	}

	// Toggle back on.
	reg.Reset()
	inj.inserts = make(map[string][]string)
	s.Scan(context.Background(), doc, allOn, inj)

	g = reg.Group("status:1")
	if g == nil || g.Control(ControlSearch) == nil {
		t.Error("third epoch should re-add the search control")
	}
	if n := len(inj.inserts["status:1"]); n != 1 {
		t.Errorf("inserts this epoch: got %d, want 1", n)
	}
	open := 0
	for _, c := range g.Controls {
		if c.Kind == ControlOpen {
			open++
		}
	}
	if open != 1 {
		t.Errorf("open controls: got %d, want exactly 1", open)
	}
}
