// Package search implements ports.Searcher against a Tavily-compatible web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/quill/pkg/ports"
)

const (
	DefaultBaseURL = "https://api.tavily.com"
	DefaultTimeout = 30 * time.Second
)

// APIError is a non-2xx answer or a transport failure.
type APIError struct {
	StatusCode int // 0 for transport failures
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "search request failed: " + e.Message
	}
	return fmt.Sprintf("search request failed: status=%d msg=%s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client queries the search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.Searcher = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns at most maxResults snippets for query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	payload, err := json.Marshal(searchRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.logger.Debug("Search", "query", query, "results", len(out.Results))

	snippets := make([]string, 0, min(len(out.Results), maxResults))
	for _, r := range out.Results {
		if len(snippets) == maxResults {
			break
		}
		snippets = append(snippets, format(r.Title, r.URL, r.Content))
	}
	return snippets, nil
}

func format(title, url, content string) string {
	content = strings.TrimSpace(content)
	switch {
	case title != "" && url != "":
		return fmt.Sprintf("%s (%s): %s", title, url, content)
	case title != "":
		return title + ": " + content
	}
	return content
}
