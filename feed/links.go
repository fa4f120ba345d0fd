package feed

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/worldlens/wref"
)

// ResolveLink scans a post's anchors for an already-known world
// identifier. For each anchor, in document order, three fields are
// tested in order: the target URL, the visible text, and the title
// attribute. The first identifier found wins. URL-derived identifiers
// are unambiguous, so this takes precedence over free-text extraction.
func ResolveLink(post *html.Node) (wref.Ref, bool) {
	for _, a := range querySelectorAll(post, "a") {
		fields := []string{
			attrValue(a, "href"),
			collectText(a),
			attrValue(a, "title"),
		}
		for _, f := range fields {
			if f == "" {
				continue
			}
			if id, ok := wref.FindID(f); ok {
				return wref.Ref{Kind: wref.KindID, Value: id}, true
			}
		}
	}
	return wref.Ref{}, false
}

// collectText gathers the visible text of a subtree, space-joined.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// statusHref pulls the numeric status ID out of a permalink path.
var statusHref = regexp.MustCompile(`/status/(\d+)`)

// snippetLen bounds the text locator hint carried in a PostRef.
const snippetLen = 64

// PostRef is a stable handle on a post. ID keys the registry; StatusID
// and TextSnippet are locator hints the live injector uses to find the
// post again inside the mutating page. Virtualized lists recycle DOM
// nodes, so node identity is not a usable key.
type PostRef struct {
	ID          string
	StatusID    string // numeric permalink ID, "" when the post has none
	TextSnippet string // prefix of the normalized text, fallback locator
}

// MakePostRef derives a post's identity: the permalink status ID when
// one of its anchors carries it, else a hash of the normalized text.
func MakePostRef(post *html.Node) PostRef {
	text := Normalize(post)
	snippet := strings.TrimSpace(text)
	if len(snippet) > snippetLen {
		// Cut on a rune boundary.
		cut := snippetLen
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}

	for _, a := range querySelectorAll(post, "a") {
		if m := statusHref.FindStringSubmatch(attrValue(a, "href")); m != nil {
			return PostRef{ID: "status:" + m[1], StatusID: m[1], TextSnippet: snippet}
		}
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	return PostRef{ID: fmt.Sprintf("text:%x", h.Sum64()), TextSnippet: snippet}
}

// PostID is shorthand for MakePostRef(post).ID.
func PostID(post *html.Node) string {
	return MakePostRef(post).ID
}
