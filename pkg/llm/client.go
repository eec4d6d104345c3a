// Package llm provides an HTTP client for a hosted chat-completion API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
)

// SystemPrompt is the fixed persona sent with every completion request.
const SystemPrompt = "You are a helpful, trustworthy medical assistant. Guide the user with safe and clear answers."

// Config configures the completion client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client calls a chat-completion endpoint with a fixed system persona and
// generation parameters. It reports unexpected response shapes as typed
// errors instead of substituting fallback text; the fallback policy lives in
// the orchestrator.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float32
	client      *http.Client
}

// NewClient creates a completion client. Defaults: deepseek-v3, 512 max
// tokens, temperature 0.7, 60s timeout.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "deepseek-v3"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

// Complete sends the prompt as the user turn and returns the first choice's
// trimmed content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &domain.UpstreamResponseError{Service: "llm", Detail: "invalid JSON: " + err.Error()}
	}

	if len(result.Error) > 0 {
		return "", &domain.UpstreamResponseError{Service: "llm", Detail: string(result.Error)}
	}
	if len(result.Choices) == 0 {
		return "", &domain.UpstreamResponseError{Service: "llm", Detail: "no choices in response"}
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", &domain.UpstreamResponseError{Service: "llm", Detail: "empty completion content"}
	}
	return content, nil
}
