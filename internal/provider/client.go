package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/shoply/assistant-engine/internal/utils"
)

// Client calls an OpenAI-compatible chat completions endpoint.
//
// The caller owns timeout policy: Complete applies exactly one timeout (the
// configured generation timeout) and performs no retries. A failed call
// surfaces immediately so the session manager can decide billability.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature *float64
	timeout     time.Duration
	httpClient  *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTemperature sets the sampling temperature sent to the provider.
// Zero is a meaningful value, hence the explicit option.
func WithTemperature(t float64) Option {
	return func(client *Client) {
		client.temperature = &t
	}
}

// NewClient creates a generation client.
func NewClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		// No client-level timeout: the per-call context deadline governs,
		// so a caller-supplied detached context still gets exactly one bound.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete issues one generation call and parses text plus token usage.
func (c *Client) Complete(ctx context.Context, req Request) (*Result, error) {
	body, err := c.buildBody(req)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			log.Warn().Dur("elapsed", time.Since(start)).Msg("Generation call timed out")
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	text := gjson.GetBytes(respBody, "choices.0.message.content").String()
	if text == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "empty completion"}
	}

	result := &Result{
		Text:             text,
		PromptTokens:     int(gjson.GetBytes(respBody, "usage.prompt_tokens").Int()),
		CompletionTokens: int(gjson.GetBytes(respBody, "usage.completion_tokens").Int()),
	}

	log.Debug().
		Str("model", c.model).
		Int("prompt_tokens", result.PromptTokens).
		Int("completion_tokens", result.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("Generation call completed")

	return result, nil
}

// buildBody assembles the chat completions payload.
func (c *Client) buildBody(req Request) ([]byte, error) {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	payload := struct {
		Model     string    `json:"model"`
		Messages  []Message `json:"messages"`
		MaxTokens int       `json:"max_tokens,omitempty"`
	}{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}

	// No HTML escaping: product names carry '&' and '<' and the model should
	// see them verbatim.
	body, err := utils.MarshalNoEscape(payload)
	if err != nil {
		return nil, err
	}

	// Temperature is patched in rather than marshaled: 0 is a valid setting
	// and omitempty on a struct field would silently drop it.
	if c.temperature != nil {
		body, err = sjson.SetBytes(body, "temperature", *c.temperature)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}
