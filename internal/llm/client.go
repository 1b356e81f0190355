// Package llm is the boundary abstraction over the generative text backend.
// The engine only depends on the generate contract; this client speaks the
// OpenRouter chat-completions wire.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maraval/faeweave/internal/prompt"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is used when options carry no model.
const DefaultModel = "openai/gpt-4o-mini"

// Option bounds per the adapter contract.
const (
	MinTemperature = 0.0
	MaxTemperature = 1.5
	MinMaxTokens   = 120
	MaxMaxTokens   = 2000
)

// Options are the per-call generation settings.
type Options struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Normalize fills defaults and forces the options into their contract ranges.
func (o Options) Normalize() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Temperature < MinTemperature {
		o.Temperature = MinTemperature
	}
	if o.Temperature > MaxTemperature {
		o.Temperature = MaxTemperature
	}
	if o.MaxTokens < MinMaxTokens {
		o.MaxTokens = MinMaxTokens
	}
	if o.MaxTokens > MaxMaxTokens {
		o.MaxTokens = MaxMaxTokens
	}
	return o
}

// Client calls the OpenRouter chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client with the default endpoint.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, defaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint. Used by
// tests to point at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
		Reason  string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends one prompt and returns the raw model text. Failures are
// returned as *AdapterError with their classification; the caller-supplied
// context carries the timeout.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", &AdapterError{Kind: ErrAuth, Err: errors.New("API key not set")}
	}

	opts = opts.Normalize()
	body, err := json.Marshal(completionRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
	})
	if err != nil {
		return "", &AdapterError{Kind: ErrUnknown, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &AdapterError{Kind: ErrUnknown, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", &AdapterError{Kind: ErrTimeout, Err: err}
		}
		return "", &AdapterError{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AdapterError{Kind: ErrTransport, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AdapterError{Kind: ErrAuth, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &AdapterError{Kind: ErrRateLimited, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return "", &AdapterError{Kind: ErrTransport, Err: fmt.Errorf("status %d: %s", resp.StatusCode, respBody)}
	case resp.StatusCode != http.StatusOK:
		return "", &AdapterError{Kind: ErrUnknown, Err: fmt.Errorf("status %d: %s", resp.StatusCode, respBody)}
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", &AdapterError{Kind: ErrUnknown, Err: fmt.Errorf("parse response: %w", err)}
	}

	if completion.Error != nil {
		return "", &AdapterError{Kind: ErrUnknown, Err: fmt.Errorf("API error: %s (%s)", completion.Error.Message, completion.Error.Type)}
	}

	if len(completion.Choices) == 0 {
		return "", &AdapterError{Kind: ErrUnknown, Err: errors.New("no choices in response")}
	}

	return completion.Choices[0].Message.Content, nil
}
