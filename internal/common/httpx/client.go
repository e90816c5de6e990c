// internal/common/httpx/client.go
package httpx

import (
	"net/http"
	"time"
)

// Client wraps http.Client with the fixed per-request timeout used for every
// outbound call in the solver.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
