// Package openai implements ports.Invoker on top of any OpenAI-compatible
// chat-completions endpoint (OpenAI, OpenRouter, Azure-style gateways, local
// servers exposing the same API).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/prompt"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// errorBodyLimit caps how much of an error response is kept in APIError.
const errorBodyLimit = 512

// ErrNoChoices is returned when the API answers without any completion.
var ErrNoChoices = errors.New("no choices in response")

// APIError is a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Timeout reports whether the upstream gave up waiting (408/504).
func (e *APIError) Timeout() bool {
	return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout
}

// Invoker calls /chat/completions once per request. It never retries.
type Invoker struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Invoker.
type Option func(*Invoker)

// WithBaseURL points the invoker at another OpenAI-compatible API.
func WithBaseURL(url string) Option {
	return func(i *Invoker) {
		if url != "" {
			i.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client (tests, proxies, custom transports).
func WithHTTPClient(c *http.Client) Option {
	return func(i *Invoker) {
		if c != nil {
			i.httpClient = c
		}
	}
}

// WithTimeout sets the HTTP client timeout for a single call.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.httpClient.Timeout = d
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Invoker) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an OpenAI-compatible invoker.
func New(apiKey string, opts ...Option) *Invoker {
	i := &Invoker{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Invoke implements ports.Invoker. The persona framing becomes the system
// message and the question the user message.
func (i *Invoker) Invoke(ctx context.Context, req ports.InvokeRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: req.Model.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System(req.Stage, req.Persona)},
			{Role: "user", Content: req.Question},
		},
		Temperature: req.Model.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+i.apiKey)
	}

	start := time.Now()
	resp, err := i.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > errorBodyLimit {
			msg = msg[:errorBodyLimit]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(msg)}
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}

	i.logger.Debug("chat completion",
		"stage", req.Stage,
		"expert_id", req.ExpertID,
		"model", req.Model.ModelName,
		"tokens", out.Usage.TotalTokens,
		"finish_reason", out.Choices[0].FinishReason,
		"elapsed", time.Since(start))

	return out.Choices[0].Message.Content, nil
}
