package wref

// Extractor evaluates an ordered pattern list against normalized text.
// The zero value is not usable; call NewExtractor.
type Extractor struct {
	patterns []Pattern
}

// NewExtractor creates an Extractor. With no patterns given, the default
// rule set is used.
func NewExtractor(patterns ...Pattern) *Extractor {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Extractor{patterns: patterns}
}

// Extract returns the first pattern capture that survives Clean, as a
// name reference. A pattern whose capture reduces to the empty string
// does not win; evaluation continues with the next pattern.
func (e *Extractor) Extract(text string) (Ref, bool) {
	if text == "" {
		return Ref{}, false
	}
	for _, p := range e.patterns {
		raw, ok := p.Match(text)
		if !ok {
			continue
		}
		if name := Clean(raw); name != "" {
			return Ref{Kind: KindName, Value: name}, true
		}
	}
	return Ref{}, false
}
