package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/worldlens/feed"
	"github.com/hazyhaar/worldlens/worldapi"
	"github.com/hazyhaar/worldlens/wref"
)

const testID = "wrld_12345678-abcd-ef01-2345-6789abcdef01"

type fakeOpener struct {
	mu   sync.Mutex
	urls []string
	fail bool
}

func (f *fakeOpener) Open(_ context.Context, u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("open failed")
	}
	f.urls = append(f.urls, u)
	return nil
}

func (f *fakeOpener) opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type recordingSink struct {
	mu     sync.Mutex
	states []State
}

func (r *recordingSink) SetControlState(_ context.Context, _ string, _ feed.ControlKind, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingSink) seen() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

type fakeSearcher struct {
	res     worldapi.SearchResult
	err     error
	block   chan struct{} // when non-nil, SearchWorld waits on it
	calls   int
	callsMu sync.Mutex
}

func (f *fakeSearcher) SearchWorld(_ context.Context, _ string) (worldapi.SearchResult, error) {
	f.callsMu.Lock()
	f.calls++
	f.callsMu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.res, f.err
}

const base = "https://example.com/home"

func openGroup(ref wref.Ref) *feed.ControlGroup {
	return &feed.ControlGroup{
		PostID:   "p1",
		Controls: []feed.Control{{Kind: feed.ControlOpen, Label: "Open World", Ref: ref}},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestActivate_OpenWithResolvedID(t *testing.T) {
	op := &fakeOpener{}
	sink := &recordingSink{}
	api := &fakeSearcher{}
	c := NewController(base, api, op, sink, WithResetDelay(10*time.Millisecond))

	c.Activate(context.Background(), openGroup(wref.Ref{Kind: wref.KindID, Value: testID}), feed.ControlOpen)

	want := base + "/world/" + testID
	if got := op.opened(); len(got) != 1 || got[0] != want {
		t.Errorf("opened: got %v, want [%s]", got, want)
	}
	if api.calls != 0 {
		t.Error("resolved identifier must not trigger a search")
	}

	// success, then auto-reset to idle.
	waitFor(t, func() bool {
		s := sink.seen()
		return len(s) == 2 && s[0] == StateSuccess && s[1] == StateIdle
	})
}

func TestActivate_OpenByNameSuccess(t *testing.T) {
	op := &fakeOpener{}
	sink := &recordingSink{}
	api := &fakeSearcher{res: worldapi.SearchResult{Success: true, WorldID: testID}}
	c := NewController(base, api, op, sink, WithResetDelay(10*time.Millisecond))

	c.Activate(context.Background(), openGroup(wref.Ref{Kind: wref.KindName, Value: "Cozy Cafe"}), feed.ControlOpen)

	if got := op.opened(); len(got) != 1 || got[0] != base+"/world/"+testID {
		t.Errorf("opened: got %v", got)
	}
	waitFor(t, func() bool {
		s := sink.seen()
		return len(s) == 3 && s[0] == StateBusy && s[1] == StateSuccess && s[2] == StateIdle
	})
}

func TestActivate_OpenNeedsAuth(t *testing.T) {
	op := &fakeOpener{}
	sink := &recordingSink{}
	api := &fakeSearcher{res: worldapi.SearchResult{NeedsAuth: true}}
	c := NewController(base, api, op, sink, WithResetDelay(10*time.Millisecond))

	c.Activate(context.Background(), openGroup(wref.Ref{Kind: wref.KindName, Value: "x"}), feed.ControlOpen)

	if len(op.opened()) != 0 {
		t.Error("needsAuth must not open a page")
	}
	waitFor(t, func() bool {
		s := sink.seen()
		return len(s) == 3 && s[1] == StateNeedsAuth && s[2] == StateIdle
	})
}

func TestActivate_OpenNotFound(t *testing.T) {
	cases := []struct {
		name string
		api  *fakeSearcher
	}{
		{"explicit not found", &fakeSearcher{res: worldapi.SearchResult{NotFound: true}}},
		{"transport error", &fakeSearcher{err: errors.New("connection refused")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op := &fakeOpener{}
			sink := &recordingSink{}
			c := NewController(base, tc.api, op, sink, WithResetDelay(10*time.Millisecond))

			c.Activate(context.Background(), openGroup(wref.Ref{Kind: wref.KindName, Value: "x"}), feed.ControlOpen)

			if len(op.opened()) != 0 {
				t.Error("failed search must not open a page")
			}
			waitFor(t, func() bool {
				s := sink.seen()
				return len(s) == 3 && s[1] == StateNotFound && s[2] == StateIdle
			})
		})
	}
}

func TestActivate_ReentrantClickIgnored(t *testing.T) {
	op := &fakeOpener{}
	sink := &recordingSink{}
	api := &fakeSearcher{
		res:   worldapi.SearchResult{Success: true, WorldID: testID},
		block: make(chan struct{}),
	}
	c := NewController(base, api, op, sink, WithResetDelay(10*time.Millisecond))
	g := openGroup(wref.Ref{Kind: wref.KindName, Value: "x"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Activate(context.Background(), g, feed.ControlOpen)
	}()

	waitFor(t, func() bool {
		api.callsMu.Lock()
		defer api.callsMu.Unlock()
		return api.calls == 1
	})

	// Second click while the first is in flight.
	c.Activate(context.Background(), g, feed.ControlOpen)
	close(api.block)
	<-done

	if api.calls != 1 {
		t.Errorf("searches: got %d, want 1 (re-entrant click ignored)", api.calls)
	}
	// After the reset the control is clickable again.
	waitFor(t, func() bool {
		s := sink.seen()
		return len(s) > 0 && s[len(s)-1] == StateIdle
	})
	time.Sleep(20 * time.Millisecond) // let the in-flight guard clear
	c.Activate(context.Background(), g, feed.ControlOpen)
	if api.calls != 2 {
		t.Errorf("searches after reset: got %d, want 2", api.calls)
	}
}

func TestActivate_SearchControl(t *testing.T) {
	op := &fakeOpener{}
	sink := &recordingSink{}
	api := &fakeSearcher{}
	c := NewController(base, api, op, sink)

	g := &feed.ControlGroup{
		PostID:   "p1",
		Controls: []feed.Control{{Kind: feed.ControlSearch, Ref: wref.Ref{Kind: wref.KindName, Value: "桜の庭園 cafe"}}},
	}
	c.Activate(context.Background(), g, feed.ControlSearch)

	want := SearchURL(base, "桜の庭園 cafe")
	if got := op.opened(); len(got) != 1 || got[0] != want {
		t.Errorf("opened: got %v, want [%s]", got, want)
	}
	if api.calls != 0 {
		t.Error("search control must not hit the API")
	}
	if len(sink.seen()) != 0 {
		t.Errorf("search control should not drive the state machine: %v", sink.seen())
	}
}

func TestActivate_MissingControl(t *testing.T) {
	c := NewController(base, &fakeSearcher{}, &fakeOpener{}, &recordingSink{})
	// Group without a search control: activation is a no-op.
	c.Activate(context.Background(), openGroup(wref.Ref{Kind: wref.KindID, Value: testID}), feed.ControlSearch)
	c.Activate(context.Background(), nil, feed.ControlOpen)
}
