// Package worldapi is the client for the platform's world API: session
// checking and world search. It is a plain request/response collaborator
// — no retries, no backoff; callers decide what a failure means.
package worldapi

// Profile identifies the authenticated user.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// AuthStatus is the result of a session check.
type AuthStatus struct {
	Authenticated bool     `json:"authenticated"`
	User          *Profile `json:"user,omitempty"`
}

// SearchResult is the outcome of a world search by name. Exactly one of
// Success, NeedsAuth, or NotFound is set; Err carries detail for
// NotFound caused by an explicit API failure.
type SearchResult struct {
	Success   bool   `json:"success"`
	WorldID   string `json:"worldId,omitempty"`
	WorldName string `json:"worldName,omitempty"`
	NeedsAuth bool   `json:"needsAuth,omitempty"`
	NotFound  bool   `json:"notFound,omitempty"`
	Err       string `json:"error,omitempty"`
}
