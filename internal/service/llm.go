package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/loom/internal/domain"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-independent completion request.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// CompletionResponse is the result of a completion call.
type CompletionResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"-"`
}

// LLM is the language-model service handle bound into agents.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// HTTPLLM is a direct HTTP client for chat-completions style APIs.
// The endpoint and model come from the provider configuration.
type HTTPLLM struct {
	provider string
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewHTTPLLM builds an LLM client from a provider config.
func NewHTTPLLM(cfg domain.ProviderConfig) *HTTPLLM {
	return &HTTPLLM{
		provider: cfg.Name,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *HTTPLLM) Name() string { return c.provider }

// Complete sends a non-streaming completion request.
func (c *HTTPLLM) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: c.provider, Code: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, &APIError{Provider: c.provider, Message: "response contained no choices"}
	}

	model := result.Model
	if model == "" {
		model = c.model
	}
	return &CompletionResponse{
		Content:  result.Choices[0].Message.Content,
		Model:    model,
		Duration: time.Since(start),
	}, nil
}

func (c *HTTPLLM) buildRequestBody(req CompletionRequest) map[string]any {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	body := map[string]any{
		"model":    c.model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	return body
}

// API response structures

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}
