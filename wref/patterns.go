package wref

import "regexp"

// Pattern attempts to capture a world-name candidate from normalized
// post text. Implementations must be safe for concurrent use.
type Pattern interface {
	Name() string
	// Match returns the raw capture (before Clean) and whether the
	// pattern matched at all.
	Match(text string) (string, bool)
}

// regexPattern is a Pattern backed by a compiled regexp and a capture
// group index.
type regexPattern struct {
	name  string
	re    *regexp.Regexp
	group int
}

func (p *regexPattern) Name() string { return p.name }

func (p *regexPattern) Match(text string) (string, bool) {
	m := p.re.FindStringSubmatch(text)
	if m == nil || p.group >= len(m) {
		return "", false
	}
	return m[p.group], true
}

// NewRegexPattern builds a Pattern from a regexp source and the capture
// group that holds the candidate name.
func NewRegexPattern(name, expr string, group int) Pattern {
	return &regexPattern{name: name, re: regexp.MustCompile(expr), group: group}
}

// DefaultPatterns returns the fixed extraction rule set, priority
// ordered. Evaluation is top-to-bottom and the first capture that
// survives Clean wins; an earlier-listed pattern always beats a later
// one, regardless of match position or length.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// World: Cozy Cafe
		NewRegexPattern("world-colon", `(?i)world\s*[:：]\s*([^\n]+)`, 1),
		// World(Cozy Cafe) / World（...）/ World「...」/ World『...』/ World【...】
		NewRegexPattern("world-bracket", `(?i)world\s*[(（「『【\[]\s*([^)）」』】\]\n]+)`, 1),
		// 🌐 Cozy Cafe (any of the globe glyphs)
		NewRegexPattern("globe-emoji", `[🌐🌍🌎🌏]\s*([^\n]+)`, 1),
		// ワールド: ... / ワールド名：...
		NewRegexPattern("jp-colon", `ワールド名?\s*[:：]\s*([^\n]+)`, 1),
		// ワールド名 ...
		NewRegexPattern("jp-space", `ワールド名\s+([^\n]+)`, 1),
		// World name: ...
		NewRegexPattern("world-name-colon", `(?i)world\s*name\s*[:：]\s*([^\n]+)`, 1),
		// First line of the block, with "By <author>" on a later line.
		NewRegexPattern("byline", `(?ims)\A\s*([^\n]+?)\s*\r?\n.*?^\s*by\s+\S+`, 1),
		// Same shape with "Author: <author>".
		NewRegexPattern("author-line", `(?ims)\A\s*([^\n]+?)\s*\r?\n.*?^\s*author\s*[:：]\s*\S+`, 1),
	}
}
