// SPDX-License-Identifier: MPL-2.0

package spacedock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the public SpaceDock instance.
	DefaultBaseURL = "https://spacedock.info"

	maxJSONResponseBytes = 10 << 20
)

// ErrModNotFound is returned when the registry has no mod with the given id.
var ErrModNotFound = errors.New("mod not found")

type (
	// Mod is a registry entry. Versions are ordered newest first.
	Mod struct {
		ID               int       `json:"id"`
		Name             string    `json:"name"`
		ShortDescription string    `json:"short_description"`
		Description      string    `json:"description"`
		Author           string    `json:"author"`
		License          string    `json:"license"`
		Website          string    `json:"website"`
		Downloads        int       `json:"downloads"`
		Versions         []Version `json:"versions"`
	}

	// Version is one published release of a mod.
	Version struct {
		ID              int    `json:"id"`
		FriendlyVersion string `json:"friendly_version"`
		GameVersion     string `json:"game_version"`
		DownloadPath    string `json:"download_path"`
		Changelog       string `json:"changelog"`
		Created         string `json:"created"`
	}

	// Client queries the SpaceDock JSON API.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *Client) {
		s.httpClient = c
	}
}

// WithBaseURL overrides the registry base URL.
func WithBaseURL(base string) ClientOption {
	return func(s *Client) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(s *Client) {
		s.userAgent = ua
	}
}

// NewClient creates a Client for DefaultBaseURL.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "kspmod/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the registry root, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Mod fetches the metadata of mod id.
func (c *Client) Mod(ctx context.Context, id string) (*Mod, error) {
	var mod Mod
	if err := c.getJSON(ctx, "/api/mod/"+url.PathEscape(id), &mod); err != nil {
		return nil, fmt.Errorf("fetching mod %s: %w", id, err)
	}
	return &mod, nil
}

// Search returns the mods matching query in registry order.
func (c *Client) Search(ctx context.Context, query string) ([]Mod, error) {
	var results []Mod
	if err := c.getJSON(ctx, "/api/search/mod?query="+url.QueryEscape(query), &results); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return results, nil
}

// DownloadURL returns the absolute URL of the newest version of m, or ""
// when m has no versions.
func (c *Client) DownloadURL(m *Mod) string {
	if len(m.Versions) == 0 {
		return ""
	}
	return c.baseURL + m.Versions[0].DownloadPath
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrModNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	// SpaceDock reports some failures as {"error": true, "reason": "..."}
	// with a 200 status.
	if m, ok := out.(*Mod); ok && m.Name == "" {
		return ErrModNotFound
	}
	return nil
}
