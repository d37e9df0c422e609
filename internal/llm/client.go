package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Mode selects how the model output is returned
type Mode int

const (
	// ModeText returns the completion as free text
	ModeText Mode = iota
	// ModeJSON asks for a JSON object and decodes it into Result.Fields
	ModeJSON
)

// CallRequest is one stateless language-model call
type CallRequest struct {
	Model        string // empty uses the client default
	SystemPrompt string
	UserPrompt   string
	Mode         Mode
}

// Result holds the output of a call. Fields is set only in ModeJSON.
type Result struct {
	Text   string
	Fields map[string]any
}

// String returns the named field as a trimmed string. Numbers are
// formatted, anything else yields "".
func (r *Result) String(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	switch v := r.Fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Caller is the language-model collaborator
type Caller interface {
	Call(ctx context.Context, req CallRequest) (*Result, error)
}

// Client OpenAI-compatible chat completions client
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// Message message structure
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest chat request
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatResponse API response
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the HTTP timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new LLM client
func New(apiKey, baseURL, model string, temperature float64, maxTokens int, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends a single system+user exchange. Failures are returned as-is,
// there is no retry.
func (c *Client) Call(ctx context.Context, req CallRequest) (*Result, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if req.Mode == ModeJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned error (status %d): %s", resp.StatusCode, string(body))
	}

	content, err := c.handleResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	return finish(content, req.Mode)
}

// handleResponse extracts the first choice's content
func (c *Client) handleResponse(body io.Reader) (string, error) {
	var resp chatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("API returned empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// finish builds the Result for the requested mode
func finish(content string, mode Mode) (*Result, error) {
	result := &Result{Text: content}
	if mode != ModeJSON {
		return result, nil
	}
	fields, err := DecodeStructured(content)
	if err != nil {
		return nil, err
	}
	result.Fields = fields
	return result, nil
}
