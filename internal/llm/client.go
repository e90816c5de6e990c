// internal/llm/client.go

// Package llm is the completion-provider client. The provider is consumed as
// a black box: one request, one trimmed text answer.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "market-solver/internal/common/errors"
	"market-solver/internal/common/httpx"
	"market-solver/internal/common/metrics"
)

// Request describes a single completion call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	Operation   string // metrics label, e.g. "reward-estimate" or "dedup"
}

type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpx.NewClient(timeout),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete performs one chat-completion round trip and returns the trimmed
// answer text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	operation := req.Operation
	if operation == "" {
		operation = "completion"
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		metrics.CompletionRequests.WithLabelValues(operation, "error").Inc()
		return "", apperrors.NewLLMCallFailedError(err)
	}
	metrics.CompletionRequests.WithLabelValues(operation, "ok").Inc()
	return text, nil
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		if len(respBody) > 200 {
			respBody = respBody[:200]
		}
		return "", fmt.Errorf("completion request: status %d: %s", resp.StatusCode, respBody)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
