// Package llm talks to a hosted text-generation model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated means the model stopped at the token limit, so any
	// structured payload in the reply is incomplete.
	ErrTruncated     = errors.New("llm: response truncated at max_tokens")
	ErrEmptyResponse = errors.New("llm: response has no content")
	ErrNotConfigured = errors.New("llm: API key not configured")
)

// Tool asks the model to answer by calling a single function whose input
// matches InputSchema (a JSON Schema object).
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	Tool      *Tool
}

// Response holds the first text block and the first tool call input of a reply.
type Response struct {
	Text       string
	ToolInput  json.RawMessage
	StopReason string
}

type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// APIError is a non-2xx reply from the model provider.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("llm: upstream status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("llm: upstream status %d (%s): %s", e.Status, e.Type, e.Message)
}
