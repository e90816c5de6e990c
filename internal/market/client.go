// internal/market/client.go

// Package market is the typed client for the marketplace HTTP API. All calls
// carry the static x-api-key header and the fixed per-request timeout; any
// non-2xx response is an error.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "market-solver/internal/common/errors"
	"market-solver/internal/common/httpx"
)

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

// GetProposals fetches all proposals. The payload is schema-validated before
// decoding; callers treat any error as an abort for the whole cycle.
func (c *Client) GetProposals(ctx context.Context) ([]Proposal, error) {
	body, err := c.get(ctx, "/v1/proposals/")
	if err != nil {
		return nil, err
	}

	if err := validateProposalsPayload(body); err != nil {
		return nil, apperrors.NewMarketBadPayloadError(err.Error())
	}

	var proposals []Proposal
	if err := json.Unmarshal(body, &proposals); err != nil {
		return nil, apperrors.NewMarketBadPayloadError(fmt.Sprintf("decode proposals: %v", err))
	}
	return proposals, nil
}

// GetInstance fetches a single instance by id.
func (c *Client) GetInstance(ctx context.Context, instanceID string) (*Instance, error) {
	body, err := c.get(ctx, "/v1/instances/"+instanceID)
	if err != nil {
		return nil, err
	}

	var instance Instance
	if err := json.Unmarshal(body, &instance); err != nil {
		return nil, fmt.Errorf("decode instance %s: %w", instanceID, err)
	}
	return &instance, nil
}

// GetChat fetches the chat transcript for an instance. The endpoint returns
// either a message list or an error object with a detail field; both are
// typed outcomes, not transport errors.
func (c *Client) GetChat(ctx context.Context, instanceID string) (*ChatResult, error) {
	body, err := c.get(ctx, "/v1/chat/"+instanceID)
	if err != nil {
		return nil, err
	}

	var messages []ChatMessage
	if err := json.Unmarshal(body, &messages); err == nil {
		return &ChatResult{Messages: messages}, nil
	}

	var errPayload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errPayload); err == nil && errPayload.Detail != "" {
		return &ChatResult{Detail: errPayload.Detail}, nil
	}

	return nil, fmt.Errorf("decode chat for instance %s: unrecognized payload", instanceID)
}

// SendMessage posts a chat message to an instance.
func (c *Client) SendMessage(ctx context.Context, instanceID, message string) error {
	payload := map[string]string{"message": message}
	return c.send(ctx, http.MethodPost, "/v1/chat/send-message/"+instanceID, payload)
}

// ReportReward submits the estimated reward for an instance.
func (c *Client) ReportReward(ctx context.Context, instanceID string, reward float64) error {
	payload := map[string]float64{"gen_reward": reward}
	return c.send(ctx, http.MethodPut, "/v1/instances/"+instanceID+"/report-reward", payload)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewMarketUnavailableError(fmt.Errorf("GET %s: %w", path, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewMarketUnavailableError(
			fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, truncate(body, 200)))
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewMarketUnavailableError(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperrors.NewMarketUnavailableError(
			fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(respBody, 200)))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
