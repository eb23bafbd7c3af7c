package openai

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

	"github.com/aretw0/daydream/internal/logging"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.3
	DefaultTimeout     = 30 * time.Second

	// ProxyTokenHeader carries the shared secret in proxy mode.
	ProxyTokenHeader = "X-API-Token"
)

var (
	// ErrNotConfigured is returned before any request when credentials are missing.
	ErrNotConfigured = errors.New("openai client not configured")

	// ErrNoChoices is returned when a 2xx response carries no completion.
	ErrNoChoices = errors.New("LLM response did not contain 'choices'")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! Status: %d, %s", e.StatusCode, e.Body)
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completions payload.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the subset of the chat completions response the client reads.
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client implements ports.Ideator over the chat completions API, either
// directly (bearer key) or through the token-guarded relay (see internal/proxy).
type Client struct {
	baseURL     string
	apiKey      string
	proxyURL    string
	proxyToken  string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey enables direct mode with a bearer key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL overrides DefaultBaseURL in direct mode.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithProxy enables proxy mode: requests go to <url>/api/openai with the token header.
func WithProxy(url, token string) Option {
	return func(c *Client) {
		c.proxyURL = strings.TrimSuffix(url, "/")
		c.proxyToken = token
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithTimeout bounds requests made without a caller deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client. Without WithAPIKey or WithProxy every call fails
// with ErrNotConfigured.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		httpClient:  http.DefaultClient,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Expand implements ports.Ideator.
func (c *Client) Expand(ctx context.Context, history []string) ([]string, error) {
	text, err := c.Chat(ctx, ExpandMessages(history))
	if err != nil {
		return nil, err
	}
	return ParseOptions(text), nil
}

// Complete implements ports.Ideator.
func (c *Client) Complete(ctx context.Context, history []string) (string, error) {
	return c.Chat(ctx, CompleteMessages(history))
}

// Chat sends messages and returns the trimmed content of the first choice.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	endpoint, header, value, err := c.target()
	if err != nil {
		return "", err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, value)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("Chat completion returned", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// target resolves the endpoint and auth header for the configured mode.
func (c *Client) target() (endpoint, header, value string, err error) {
	if c.proxyURL != "" || c.proxyToken != "" {
		if c.proxyURL == "" {
			return "", "", "", fmt.Errorf("%w: proxy server URL not configured", ErrNotConfigured)
		}
		if c.proxyToken == "" {
			return "", "", "", fmt.Errorf("%w: proxy token not configured", ErrNotConfigured)
		}
		return c.proxyURL + "/api/openai", ProxyTokenHeader, c.proxyToken, nil
	}
	if c.apiKey == "" {
		return "", "", "", fmt.Errorf("%w: API key not configured", ErrNotConfigured)
	}
	return c.baseURL + "/chat/completions", "Authorization", "Bearer " + c.apiKey, nil
}
