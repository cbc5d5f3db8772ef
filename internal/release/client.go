// Package release fetches and parses the latest release descriptor from the
// release host's "latest release" endpoint.
package release

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Asset describes one file attached to a release.
type Asset struct {
	Name        string    `json:"name"`
	DownloadURL string    `json:"browser_download_url"`
	SizeBytes   int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Descriptor describes the latest release and its assets.
type Descriptor struct {
	VersionTag  string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	Body        string    `json:"body"`
	Assets      []Asset   `json:"assets"`
}

// FetchError is returned when the release host responds with a status
// outside [200,299]. Retryable marks rate-limit responses (403 with a
// rate-limit marker, or 429) — the caller decides whether to retry, this
// package never retries internally.
type FetchError struct {
	Status    int
	Retryable bool
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("release fetch failed: status %d", e.Status)
}

// ParseError is returned when the response body cannot be decoded into a
// Descriptor.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse release descriptor: %s", e.Reason)
}

// Client fetches the latest release descriptor for one (owner, repo) pair.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

const defaultBaseURL = "https://api.github.com"

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the release host's API origin; used by tests to
// point at a fake server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithLogger attaches structured logging to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a Client whose User-Agent identifies product/version, e.g.
// "shelfterm/1.3.2". The underlying http.Client negotiates TLS >= 1.2 and
// enforces the 60s overall timeout from the concurrency model.
func New(userAgent string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the latest release descriptor for the given
// repository owner/name.
func (c *Client) LatestRelease(ctx context.Context, owner, name string) (Descriptor, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("release fetch transport error", "owner", owner, "repo", name, "error", err)
		return Descriptor{}, &FetchError{Status: 0, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
		c.logger.Warn("release fetch non-2xx status", "owner", owner, "repo", name, "status", resp.StatusCode, "retryable", retryable)
		return Descriptor{}, &FetchError{Status: resp.StatusCode, Retryable: retryable}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Descriptor{}, &ParseError{Reason: err.Error()}
	}

	var desc Descriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		return Descriptor{}, &ParseError{Reason: err.Error()}
	}
	if desc.VersionTag == "" {
		return Descriptor{}, &ParseError{Reason: "missing tag_name"}
	}

	c.logger.Info("release fetched", "owner", owner, "repo", name, "version_tag", desc.VersionTag, "assets", len(desc.Assets))
	return desc, nil
}
