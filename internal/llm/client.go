// Package llm provides the chat-completion client used by every reasoning
// stage, plus the structured-output decoder for JSON verdicts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request configures a completion call.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response is the output of a completion call.
type Response struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`
}

// Client is the chat-completion collaborator contract: an ordered sequence
// of role-tagged messages plus a sampling temperature in, generated text
// out. Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a plain function to the Client interface.
// Useful for scripted fakes in tests.
type Func func(ctx context.Context, req Request) (*Response, error)

// Complete implements Client.
func (f Func) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Temperature presets. Strict is used for classification and audit calls
// that must emit structured JSON; Creative for tone-sensitive drafting.
const (
	TemperatureStrict   = 0.0
	TemperatureCreative = 0.7
)

// ErrBackendUnreachable indicates the completion endpoint could not be
// reached. This is fatal for the current run: callers propagate it rather
// than falling back to a partial answer.
var ErrBackendUnreachable = errors.New("llm backend unreachable")

// BackendError wraps a failed call with the endpoint for diagnostics.
type BackendError struct {
	// Endpoint is the base URL of the backend.
	Endpoint string
	// Err is the underlying transport or API error.
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("llm backend %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns ErrBackendUnreachable so callers can use errors.Is.
func (e *BackendError) Unwrap() error {
	return ErrBackendUnreachable
}
