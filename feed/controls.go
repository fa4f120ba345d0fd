package feed

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/worldlens/wref"
)

// ControlKind identifies one of the two injected controls.
type ControlKind string

const (
	// ControlOpen opens the referenced world directly.
	ControlOpen ControlKind = "open"
	// ControlSearch opens a world search for the extracted name.
	ControlSearch ControlKind = "search"
)

// Control is one injected button. Ref is the reference the control acts
// on: for open, the identifier when one exists, else the name; for
// search, always the name.
type Control struct {
	Kind  ControlKind `json:"kind"`
	Label string      `json:"label"`
	Ref   wref.Ref    `json:"ref"`
}

// ControlGroup is the UI fragment owned by one post. Created at most
// once per post per settings epoch; removed and rebuilt wholesale when
// settings change.
type ControlGroup struct {
	PostID   string    `json:"post_id"`
	Controls []Control `json:"controls"`
}

// Control returns the control of the given kind, or nil.
func (g *ControlGroup) Control(kind ControlKind) *Control {
	for i := range g.Controls {
		if g.Controls[i].Kind == kind {
			return &g.Controls[i]
		}
	}
	return nil
}

// labelPolicy strips any markup from text interpolated into the
// injected fragment. Extracted names come from hostile post content.
var labelPolicy = bluemonday.StrictPolicy()

// BuildGroup decides which controls a post gets. An open control needs
// the open toggle plus any reference (identifier preferred over name).
// A search control needs the search toggle plus a name — search cannot
// use an opaque identifier. Returns nil when no control qualifies.
func BuildGroup(postID string, id, name *wref.Ref, t Toggles) *ControlGroup {
	g := &ControlGroup{PostID: postID}

	if t.ShowOpenControl {
		ref := id
		if ref == nil {
			ref = name
		}
		if ref != nil {
			g.Controls = append(g.Controls, Control{
				Kind:  ControlOpen,
				Label: "Open World",
				Ref:   *ref,
			})
		}
	}

	if t.ShowSearchControl && name != nil {
		g.Controls = append(g.Controls, Control{
			Kind:  ControlSearch,
			Label: "Search World",
			Ref:   *name,
		})
	}

	if len(g.Controls) == 0 {
		return nil
	}
	return g
}

// RenderHTML produces the fragment the injector places before the
// post's action bar. Buttons carry the post ID and control kind as data
// attributes; the page-side script forwards clicks on them through the
// runtime binding.
func (g *ControlGroup) RenderHTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="worldlens-group" data-worldlens-post=%q>`,
		html.EscapeString(g.PostID))
	for _, c := range g.Controls {
		title := labelPolicy.Sanitize(c.Ref.Value)
		fmt.Fprintf(&b,
			`<button type="button" class="worldlens-btn worldlens-%s" data-worldlens-post=%q data-worldlens-control=%q title=%q>%s</button>`,
			c.Kind,
			html.EscapeString(g.PostID),
			c.Kind,
			html.EscapeString(title),
			html.EscapeString(c.Label),
		)
	}
	b.WriteString(`</div>`)
	return b.String()
}
