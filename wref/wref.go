// Package wref defines world references and the heuristics that recover
// them from post text and URLs. A reference is either an opaque world
// identifier (high confidence, URL-derived) or a free-text world name
// (lower confidence, pattern-derived).
package wref

import "strings"

// Kind distinguishes how a reference was obtained.
type Kind string

const (
	// KindID is an identifier recovered from a URL. Unambiguous.
	KindID Kind = "id"
	// KindName is a name recovered from free text by pattern matching.
	KindName Kind = "name"
)

// Ref is a resolved pointer to a virtual world.
type Ref struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// IDPrefix is the reserved prefix every world identifier carries.
const IDPrefix = "wrld_"

// idBodyLen is the length of the UUID part: 8-4-4-4-12 plus hyphens.
const idBodyLen = 36

var hyphenAt = map[int]bool{8: true, 13: true, 18: true, 23: true}

// validIDBody reports whether s is exactly 36 characters of lowercase
// hex with hyphens at the UUID positions.
func validIDBody(s string) bool {
	if len(s) != idBodyLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if hyphenAt[i] {
			if c != '-' {
				return false
			}
			continue
		}
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ParseID validates a complete world identifier: the reserved prefix
// followed by a 36-character lowercase hex-and-hyphen UUID body.
// Returns the identifier and true, or "" and false.
func ParseID(s string) (string, bool) {
	if !strings.HasPrefix(s, IDPrefix) {
		return "", false
	}
	if !validIDBody(s[len(IDPrefix):]) {
		return "", false
	}
	return s, true
}

// FindID locates a world identifier embedded in a longer string (a URL
// path or query). The match must not be a substring of a longer
// hex-and-hyphen run: a 37-character token does not yield its
// 36-character prefix.
func FindID(s string) (string, bool) {
	for off := 0; ; {
		i := strings.Index(s[off:], IDPrefix)
		if i < 0 {
			return "", false
		}
		start := off + i
		end := start + len(IDPrefix) + idBodyLen
		if end <= len(s) && validIDBody(s[start+len(IDPrefix):end]) {
			// Reject when the token continues with more hex/hyphen
			// characters, or when the prefix is itself mid-word.
			if (end == len(s) || !isIDChar(s[end])) &&
				(start == 0 || !isWordChar(s[start-1])) {
				return s[start:end], true
			}
		}
		off = start + len(IDPrefix)
	}
}

func isIDChar(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
