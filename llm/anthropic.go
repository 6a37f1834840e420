package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/pkg/errors"

	"github.com/andrewpaige1/studyplan-api/logger"
)

const (
	anthropicVersion = "2023-06-01"
	stopMaxTokens    = "max_tokens"
	maxErrorBody     = 1 << 16
)

type AnthropicConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	// RetryBaseDelay and RetryMaxDelay bound the jittered exponential backoff.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	cfg  AnthropicConfig
	http *http.Client
}

func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 8 * time.Second
	}

	transport := rehttp.NewTransport(
		nil,
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(cfg.MaxRetries),
			rehttp.RetryAny(
				rehttp.RetryStatuses(http.StatusTooManyRequests, http.StatusInternalServerError,
					http.StatusBadGateway, http.StatusServiceUnavailable, 529),
				rehttp.RetryTemporaryErr(),
			),
		),
		rehttp.ExpJitterDelay(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
	)

	return &AnthropicClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

type messageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolParam struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesRequest struct {
	Model      string         `json:"model"`
	MaxTokens  int            `json:"max_tokens"`
	System     string         `json:"system,omitempty"`
	Messages   []messageParam `json:"messages"`
	Tools      []toolParam    `json:"tools,omitempty"`
	ToolChoice *toolChoice    `json:"tool_choice,omitempty"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user message. A reply cut off at max_tokens is returned
// together with ErrTruncated.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	body := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []messageParam{{Role: "user", Content: req.Prompt}},
	}
	if req.Tool != nil {
		body.Tools = []toolParam{{Name: req.Tool.Name, Description: req.Tool.Description, InputSchema: req.Tool.InputSchema}}
		body.ToolChoice = &toolChoice{Type: "tool", Name: req.Tool.Name}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "llm: encode request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "llm: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "llm: request failed")
	}
	defer resp.Body.Close()
	logger.Debug("llm call finished", "status", resp.StatusCode, "duration", time.Since(start), "tool", req.Tool != nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "llm: decode response")
	}

	out := &Response{StopReason: parsed.StopReason}
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			if out.Text == "" {
				out.Text = block.Text
			}
		case "tool_use":
			if out.ToolInput == nil && len(block.Input) > 0 {
				out.ToolInput = block.Input
			}
		}
	}

	if parsed.StopReason == stopMaxTokens {
		return out, ErrTruncated
	}
	if strings.TrimSpace(out.Text) == "" && len(out.ToolInput) == 0 {
		return out, ErrEmptyResponse
	}
	return out, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		apiErr.Type = er.Error.Type
		apiErr.Message = er.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
