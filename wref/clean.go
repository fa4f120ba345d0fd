package wref

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// trailingHashtag matches a hashtag and everything after it. Post text
// routinely ends with tag spam ("Cozy Cafe #vrchat #world") that is not
// part of the world name.
var trailingHashtag = regexp.MustCompile(`#.*$`)

// closingBrackets are trimmed from the right of a match. Guards against
// nested bracket forms capturing one closer too many.
const closingBrackets = ")）」』】＞>]"

// Clean reduces a raw pattern capture to a usable world name. Applied in
// order: hashtag suffix, trailing closing brackets, pictographic runes
// and broken code units, surrounding whitespace. Returns "" when nothing
// survives.
func Clean(s string) string {
	s = trailingHashtag.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, closingBrackets)
	s = stripPictographs(s)
	return strings.TrimSpace(s)
}

// stripPictographs removes emoji-block runes, variation selectors,
// unpaired surrogate code units, and invalid UTF-8. The host platform
// renders emoji as images whose alt text flows back into the normalized
// string, and user text can carry broken surrogate halves; neither
// belongs in a world name.
func stripPictographs(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue // invalid byte sequence
		}
		if isPictograph(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPictograph(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // mahjong through symbols-extended
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // misc symbols and arrows (stars)
		return true
	case r >= 0xD800 && r <= 0xDFFF: // lone surrogate code units
		return true
	case r == 0xFE0E || r == 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	}
	return false
}
