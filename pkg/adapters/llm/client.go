// Package llm implements ports.Completer against an OpenAI-compatible
// chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/quill/pkg/ports"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	completionsPath = "/v1/chat/completions"
)

// ErrEmptyCompletion is returned when the endpoint answers without choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// APIError is a non-2xx answer or a transport failure.
type APIError struct {
	StatusCode int // 0 for transport failures
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "llm request failed: " + e.Message
	}
	return fmt.Sprintf("llm request failed: status=%d msg=%s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is a chat completions client.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	http        *http.Client
	logger      *slog.Logger
}

var _ ports.Completer = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. a local gateway.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel selects the model name sent with each request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature. Defaults to 0.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
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
		model:   DefaultModel,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete returns the assistant answer to a system and user message pair.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.chat(ctx, system, user, nil)
}

// CompleteStructured requests output constrained to schema and decodes it into out.
func (c *Client) CompleteStructured(ctx context.Context, system, user string, schema ports.Schema, out any) error {
	format := &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   schema.Name,
			Schema: schema.Definition,
			Strict: true,
		},
	}
	text, err := c.chat(ctx, system, user, format)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode structured completion %q: %w", schema.Name, err)
	}
	return nil
}

func (c *Client) chat(ctx context.Context, system, user string, format *responseFormat) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.temperature,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Debug("Chat completion", "model", c.model, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "invalid response body: " + err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// readErrorMessage extracts error.message from an OpenAI-style body, or returns the raw text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}
