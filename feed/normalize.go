package feed

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Normalize flattens a subtree into one logical string: the
// concatenation, in document order, of every text node and the alt text
// of every image. The host platform renders emoji as <img> elements, so
// plain text extraction loses them; alt text substitutes for the glyph.
// <br> contributes a newline so the line-anchored extraction patterns
// see the same breaks the user typed. Script and style subtrees are
// skipped. A nil root yields "".
func Normalize(root *html.Node) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Img:
				b.WriteString(attrValue(n, "alt"))
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return b.String()
}
