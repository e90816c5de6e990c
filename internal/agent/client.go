// internal/agent/client.go

// Package agent is the client for the external code-modification agent
// service. The agent makes a best-effort attempt to act on a repository and
// reports back free-form text; an empty report is a valid outcome.
package agent

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

// Task describes one delegation to the agent. RepoURL and Branch are
// optional coordinates; the agent works without them.
type Task struct {
	Model       string `json:"model"`
	Instruction string `json:"instruction"`
	RepoURL     string `json:"repo_url,omitempty"`
	Branch      string `json:"branch,omitempty"`
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

// Run executes the task and returns the agent's report. An empty string
// means the agent produced no output.
func (c *Client) Run(ctx context.Context, task Task) (string, error) {
	out, err := c.run(ctx, task)
	if err != nil {
		metrics.AgentRequests.WithLabelValues("error").Inc()
		return "", apperrors.NewAgentFailedError(err)
	}
	metrics.AgentRequests.WithLabelValues("ok").Inc()
	return out, nil
}

func (c *Client) run(ctx context.Context, task Task) (string, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		if len(respBody) > 200 {
			respBody = respBody[:200]
		}
		return "", fmt.Errorf("agent request: status %d: %s", resp.StatusCode, respBody)
	}

	var decoded struct {
		Output string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode agent response: %w", err)
	}

	return strings.TrimSpace(decoded.Output), nil
}
