package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults for the chat-completions backend.
const (
	DefaultEndpoint = "https://api.deepseek.com/v1/chat/completions"
	DefaultModel    = "deepseek-chat"

	// MaxErrorBodySize bounds how much of an error response is read.
	MaxErrorBodySize = 1 << 20
)

// ErrConfiguration is returned when the backend credential is missing or a placeholder.
var ErrConfiguration = errors.New("model backend not configured")

// Message is one chat message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completer performs one completion exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the full chat-completions URL. Default: DefaultEndpoint.
	Endpoint string

	// APIKey is sent as a bearer token.
	APIKey string

	// Model is the backend model name. Default: DefaultModel.
	Model string

	// HTTPClient overrides the transport. Default: a client with a 2 minute timeout.
	HTTPClient *http.Client
}

// Client is an OpenAI-compatible chat-completions client.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     cfg.HTTPClient,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() string { return c.endpoint }

// CheckCredential reports ErrConfiguration when the API key is unusable.
func (c *Client) CheckCredential() error {
	return CheckCredential(c.apiKey)
}

// CheckCredential reports ErrConfiguration for empty or placeholder keys.
func CheckCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: API key is empty", ErrConfiguration)
	}
	lower := strings.ToLower(key)
	if strings.Contains(key, "YOUR_ACTUAL") || lower == "changeme" ||
		(strings.HasPrefix(lower, "your_") && strings.HasSuffix(lower, "_here")) {
		return fmt.Errorf("%w: API key is a placeholder", ErrConfiguration)
	}
	return nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends req and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		return "", fmt.Errorf("backend error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
