// Package llm provides the chat completion client. The wire format is
// the OpenAI chat-completions protocol, which most hosted and local
// serving stacks speak; the base URL is configurable so the agent can
// point at any compatible endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aylahq/ayla-agent/internal/httpkit"
)

// Message represents a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its arguments. Arguments is a
// JSON-encoded string on the wire, not an object.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatRequest is the request body for the completions endpoint.
type ChatRequest struct {
	Model               string           `json:"model"`
	Messages            []Message        `json:"messages"`
	Tools               []map[string]any `json:"tools,omitempty"`
	ToolChoice          string           `json:"tool_choice,omitempty"`
	MaxCompletionTokens int              `json:"max_completion_tokens,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the response from the completions endpoint.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// First returns the first choice's message, or nil when the response
// carried none.
func (r *ChatResponse) First() *Message {
	if r == nil || len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0].Message
}

// Client talks to one chat-completions endpoint.
type Client struct {
	baseURL       string
	apiKey        string
	model         string
	fallbackModel string
	maxTokens     int
	httpClient    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = httpkit.NewClient(httpkit.WithTimeout(d))
	}
}

// WithFallbackModel sets a second model to retry with when the primary
// completion fails. Same endpoint, same key.
func WithFallbackModel(model string) Option {
	return func(c *Client) { c.fallbackModel = model }
}

// NewClient creates a completion client. baseURL defaults to the
// OpenAI API; model and maxTokens apply to every request.
func NewClient(baseURL, apiKey, model string, maxTokens int, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(2 * time.Minute),
		),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ping checks endpoint reachability via the models listing. Used by
// the health endpoint; the response body is not inspected.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode,
			httpkit.ReadErrorBody(resp.Body, 1024))
	}
	return nil
}

// Chat sends a completion request. tools may be nil; when present,
// tool_choice is left to the model. A failed primary completion is
// retried once on the fallback model, unless the context is done.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	resp, err := c.chat(ctx, c.model, messages, tools)
	if err == nil || ctx.Err() != nil {
		return resp, err
	}
	if c.fallbackModel == "" || c.fallbackModel == c.model {
		return nil, err
	}
	return c.chat(ctx, c.fallbackModel, messages, tools)
}

func (c *Client) chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	req := ChatRequest{
		Model:               model,
		Messages:            messages,
		Tools:               tools,
		MaxCompletionTokens: c.maxTokens,
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode,
			httpkit.ReadErrorBody(resp.Body, 4096))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response: no choices")
	}
	return &chatResp, nil
}
