// Package feed implements the detection pipeline over a parsed feed
// document: locating post elements, normalizing their text, recovering
// world references, and deciding which controls to attach. It is pure
// with respect to the live page — all DOM effects go through the
// Injector interface so the pipeline is testable on parsed HTML alone.
package feed

import "strings"

// Config locates the pieces of a post inside the host document. The
// selectors use the subset understood by this package's selector engine.
type Config struct {
	// PostSelector matches one feed item.
	PostSelector string `yaml:"post_selector"`
	// TextSelector matches the text container inside a post.
	TextSelector string `yaml:"text_selector"`
	// ActionBarSelector matches the element the control group is
	// inserted before.
	ActionBarSelector string `yaml:"action_bar_selector"`
	// TriggerHashtag gates processing: posts whose normalized text does
	// not contain it (case-insensitively) are never decorated.
	TriggerHashtag string `yaml:"trigger_hashtag"`
}

// ApplyDefaults fills unset fields with the host-platform defaults.
func (c *Config) ApplyDefaults() {
	if c.PostSelector == "" {
		c.PostSelector = `article[data-testid=tweet]`
	}
	if c.TextSelector == "" {
		c.TextSelector = `div[data-testid=tweetText]`
	}
	if c.ActionBarSelector == "" {
		c.ActionBarSelector = `div[role=group]`
	}
	if c.TriggerHashtag == "" {
		c.TriggerHashtag = "#VRChat"
	}
}

// Toggles are the per-scan control switches, threaded explicitly into
// the scanner and processor rather than read from ambient state.
type Toggles struct {
	ShowOpenControl   bool
	ShowSearchControl bool
}

// containsFold reports whether s contains substr case-insensitively.
// Good enough for hashtag gating; hashtags are ASCII-cased.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
