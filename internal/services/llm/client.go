package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 4
)

// ErrAPIKeyRequired is returned before any request when no key is configured.
var ErrAPIKeyRequired = errors.New("llm: api key required")

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible chat completion endpoint such as
// OpenRouter. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the number of attempts per request.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// CompleteJSON issues a JSON-only text completion and returns the raw JSON
// produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", errors.New("llm complete: system and user prompts required")
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("llm complete: %w", ErrAPIKeyRequired)
	}
	payload := c.jsonRequest(
		chatMessage{Role: "system", Content: systemPrompt},
		chatMessage{Role: "user", Content: userPrompt},
	)
	return c.completeWithRetry(ctx, payload, "llm complete")
}

// CompleteVisionJSON sends an image alongside the prompt. imageURL is either a
// fetchable URL or a base64 data URL.
func (c *Client) CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt, imageURL string) (string, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	imageURL = strings.TrimSpace(imageURL)
	if userPrompt == "" || imageURL == "" {
		return "", errors.New("llm vision: prompt and image required")
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("llm vision: %w", ErrAPIKeyRequired)
	}
	messages := make([]chatMessage, 0, 2)
	if systemPrompt = strings.TrimSpace(systemPrompt); systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: []contentPart{
		{Type: "text", Text: userPrompt},
		{Type: "image_url", ImageURL: &imagePart{URL: imageURL}},
	}})
	return c.completeWithRetry(ctx, c.jsonRequest(messages...), "llm vision")
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("llm health: %w", ErrAPIKeyRequired)
	}
	payload := c.jsonRequest(
		chatMessage{Role: "system", Content: "You must respond with JSON only."},
		chatMessage{Role: "user", Content: `Respond with {"ok":true}`},
	)
	content, err := c.completeWithRetry(ctx, payload, "llm health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func (c *Client) jsonRequest(messages ...chatMessage) chatCompletionRequest {
	return chatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
}
