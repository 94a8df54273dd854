// Package llm wraps the chat gateway behind a small client that maps
// transport failures onto the service error taxonomy. Failures are surfaced
// to the caller as-is; nothing here retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Sentinel errors distinguishing gateway failure classes.
var (
	// ErrMissingCredential means no API key was configured. Detected before
	// any network call is made.
	ErrMissingCredential = errors.New("chat gateway credential not configured")

	// ErrRateLimited maps the gateway's 429 response.
	ErrRateLimited = errors.New("chat gateway rate limit exceeded")

	// ErrQuotaExceeded maps the gateway's 402 response.
	ErrQuotaExceeded = errors.New("chat gateway quota exhausted")
)

// Config holds the gateway connection settings, injected at construction.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client is a thin wrapper over the OpenAI-compatible gateway API.
type Client struct {
	api   *openai.Client
	model string
	// hasKey gates every call; requests never leave the process without a
	// credential.
	hasKey bool
}

// NewClient constructs a Client. An empty APIKey is permitted at construction
// so the server can boot in development; calls will fail with
// ErrMissingCredential.
func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Stream opens a streamed chat completion. The caller owns the returned
// stream and must Close it.
func (c *Client) Stream(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionStream, error) {
	if !c.hasKey {
		return nil, ErrMissingCredential
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   true,
	})
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return stream, nil
}

// mapGatewayError classifies a gateway failure by status code.
func mapGatewayError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
		}
		return fmt.Errorf("chat gateway returned %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w", ErrRateLimited)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w", ErrQuotaExceeded)
		}
		return fmt.Errorf("chat gateway returned %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("chat gateway request failed: %w", err)
}
