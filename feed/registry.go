package feed

import "sync"

// Registry is the side table tracking per-post processing state, keyed
// by stable post ID. It replaces DOM-node annotations: the document is
// never used as marker storage. Safe for concurrent use — the watcher
// loop scans while the action controller reads groups.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	processed uint64
	injected  uint64
	resets    uint64
}

type entry struct {
	processed bool
	group     *ControlGroup
}

// RegistryStats are point-in-time counters for the admin surface.
type RegistryStats struct {
	Tracked   int    `json:"tracked"`
	Processed uint64 `json:"processed"`
	Injected  uint64 `json:"injected"`
	Resets    uint64 `json:"resets"`
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// MarkProcessed records that a post has been evaluated. Returns true
// when this call claimed the marker, false when the post was already
// marked — the caller must then treat the post as done. Marking happens
// before any asynchronous work, so a re-entered scan cannot evaluate
// the same post twice.
func (r *Registry) MarkProcessed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	if e == nil {
		e = &entry{}
		r.entries[id] = e
	}
	if e.processed {
		return false
	}
	e.processed = true
	r.processed++
	return true
}

// Processed reports whether a post has been evaluated this epoch.
func (r *Registry) Processed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	return e != nil && e.processed
}

// SetGroup associates an injected control group with a post.
func (r *Registry) SetGroup(id string, g *ControlGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	if e == nil {
		e = &entry{}
		r.entries[id] = e
	}
	e.group = g
	r.injected++
}

// Group returns the control group attached to a post, or nil.
func (r *Registry) Group(id string) *ControlGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.entries[id]; e != nil {
		return e.group
	}
	return nil
}

// Reset drops all markers and group associations. Called on a settings
// epoch change, forcing full re-evaluation on the next scan.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
	r.resets++
}

// Prune removes entries whose post is no longer in the document,
// returning how many were dropped. The mutation feed that drives scans
// also drives lifecycle: a post that scrolled out of the virtualized
// list takes its state with it.
func (r *Registry) Prune(live map[string]struct{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id := range r.entries {
		if _, ok := live[id]; !ok {
			delete(r.entries, id)
			dropped++
		}
	}
	return dropped
}

// Stats returns current counters.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryStats{
		Tracked:   len(r.entries),
		Processed: r.processed,
		Injected:  r.injected,
		Resets:    r.resets,
	}
}
