package worldapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxResponseBody caps the amount of response data read from the API
// to prevent memory exhaustion (4 MiB).
const maxResponseBody int64 = 4 << 20

// Client talks to the platform's world API.
type Client struct {
	baseURL    string
	http       *http.Client
	authCookie string
	cache      *Cache
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout. Default: 15s.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithAuthCookie attaches a session cookie to every request.
func WithAuthCookie(cookie string) ClientOption {
	return func(c *Client) { c.authCookie = cookie }
}

// WithCache consults a search cache before the network and populates it
// after successful searches.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the given API base URL
// (e.g. "https://api.example.com/api/1").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CheckAuthentication verifies the current session.
func (c *Client) CheckAuthentication(ctx context.Context) (AuthStatus, error) {
	status, body, err := c.get(ctx, "/auth/user", nil)
	if err != nil {
		return AuthStatus{}, err
	}
	if status == http.StatusUnauthorized {
		return AuthStatus{}, nil
	}
	if status != http.StatusOK {
		return AuthStatus{}, fmt.Errorf("worldapi: auth check status %d", status)
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return AuthStatus{}, fmt.Errorf("worldapi: decode profile: %w", err)
	}
	return AuthStatus{Authenticated: true, User: &p}, nil
}

// SearchWorld looks up a world by name. Collaborator-level outcomes
// (needs auth, not found) are encoded in the result; only transport and
// protocol failures return an error.
func (c *Client) SearchWorld(ctx context.Context, name string) (SearchResult, error) {
	if c.cache != nil {
		if id, worldName, ok := c.cache.Get(ctx, name); ok {
			c.logger.Debug("worldapi: search cache hit", "name", name, "world", id)
			return SearchResult{Success: true, WorldID: id, WorldName: worldName}, nil
		}
	}

	q := url.Values{"search": {name}, "n": {strconv.Itoa(1)}}
	status, body, err := c.get(ctx, "/worlds", q)
	if err != nil {
		return SearchResult{}, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return SearchResult{NeedsAuth: true}, nil
	case status != http.StatusOK:
		return SearchResult{}, fmt.Errorf("worldapi: search status %d: %s", status, body)
	}

	var worlds []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &worlds); err != nil {
		return SearchResult{}, fmt.Errorf("worldapi: decode search: %w", err)
	}
	if len(worlds) == 0 {
		return SearchResult{NotFound: true}, nil
	}

	res := SearchResult{
		Success:   true,
		WorldID:   worlds[0].ID,
		WorldName: worlds[0].Name,
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, name, res.WorldID, res.WorldName); err != nil {
			c.logger.Warn("worldapi: cache put failed", "name", name, "error", err)
		}
	}
	return res, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("worldapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authCookie != "" {
		req.Header.Set("Cookie", c.authCookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("worldapi: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("worldapi: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
