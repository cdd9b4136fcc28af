// Package provider wraps calls to the external text-generation provider.
//
// FILES:
//   - client.go:  HTTP client and response parsing
//   - types.go:   Request/result types and error taxonomy
//   - prompts.go: System instructions and prompt assembly
//   - tokens.go:  Token counting for pre-flight estimates
package provider

import (
	"errors"
	"fmt"
)

// Message is one chat message in provider wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a fully assembled generation request.
type Request struct {
	System   string
	Messages []Message
}

// Result holds the completion text and usage metadata reported by the
// provider. Token counts come from the provider response, not local
// estimation: they are what the provider bills.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Sentinel errors for the transient failure classes. The session manager
// never retries these; it converts them to a degraded reply.
var (
	// ErrTimeout indicates the bounded generation call did not finish in time.
	ErrTimeout = errors.New("provider timeout")

	// ErrRateLimited indicates the provider rejected the call with HTTP 429.
	ErrRateLimited = errors.New("provider rate limited")
)

// APIError is a non-timeout, non-rate-limit provider failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}
