package feed

import (
	"strings"
	"testing"

	"github.com/hazyhaar/worldlens/wref"
)

func refp(k wref.Kind, v string) *wref.Ref {
	return &wref.Ref{Kind: k, Value: v}
}

func TestBuildGroup(t *testing.T) {
	id := refp(wref.KindID, linkID)
	name := refp(wref.KindName, "Cozy Cafe")
	all := Toggles{ShowOpenControl: true, ShowSearchControl: true}

	cases := []struct {
		label    string
		id, name *wref.Ref
		t        Toggles
		wantOpen *wref.Ref // nil means no open control
		wantSrch bool
	}{
		{"id preferred for open", id, name, all, id, true},
		{"name only", nil, name, all, name, true},
		{"id only no search", id, nil, all, id, false},
		{"open disabled", id, name, Toggles{ShowSearchControl: true}, nil, true},
		{"search disabled", id, name, Toggles{ShowOpenControl: true}, id, false},
		{"all disabled", id, name, Toggles{}, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			g := BuildGroup("p1", tc.id, tc.name, tc.t)
			if tc.wantOpen == nil && !tc.wantSrch {
				if g != nil {
					t.Fatalf("got group %+v, want nil", g)
				}
				return
			}
			if g == nil {
				t.Fatal("got nil group")
			}
			open := g.Control(ControlOpen)
			if tc.wantOpen == nil {
				if open != nil {
					t.Errorf("unexpected open control: %+v", open)
				}
			} else {
				if open == nil {
					t.Fatal("missing open control")
				}
				if open.Ref != *tc.wantOpen {
					t.Errorf("open ref: got %+v, want %+v", open.Ref, *tc.wantOpen)
				}
			}
			srch := g.Control(ControlSearch)
			if tc.wantSrch && srch == nil {
				t.Error("missing search control")
			}
			if !tc.wantSrch && srch != nil {
				t.Errorf("unexpected search control: %+v", srch)
			}
			if tc.wantSrch && srch != nil && srch.Ref.Kind != wref.KindName {
				t.Errorf("search ref kind: got %q, want name", srch.Ref.Kind)
			}
		})
	}
}

func TestRenderHTML_Escaping(t *testing.T) {
	g := BuildGroup("p1", nil,
		refp(wref.KindName, `<script>alert(1)</script>Cafe "x"`),
		Toggles{ShowOpenControl: true, ShowSearchControl: true})
	if g == nil {
		t.Fatal("nil group")
	}
	out := g.RenderHTML()
	if strings.Contains(out, "<script>") {
		t.Errorf("markup leaked into fragment: %s", out)
	}
	if !strings.Contains(out, `data-worldlens-control="open"`) ||
		!strings.Contains(out, `data-worldlens-control="search"`) {
		t.Errorf("control attributes missing: %s", out)
	}
	if !strings.Contains(out, `data-worldlens-post="p1"`) {
		t.Errorf("post attribute missing: %s", out)
	}
}
