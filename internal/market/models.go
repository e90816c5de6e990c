// internal/market/models.go
package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp accepts both RFC3339 and the naive ISO-8601 form the marketplace
// emits (no timezone suffix, optional fractional seconds). Naive values are
// interpreted as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format: %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// Proposal is a marketplace proposal as returned by GET /v1/proposals/.
type Proposal struct {
	InstanceID   string    `json:"instance_id"`
	Status       string    `json:"status"`
	CreationDate Timestamp `json:"creation_date"`
}

// Instance is a marketplace work item. Read-only to the solver; only the
// fields the pipeline consumes are decoded.
type Instance struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	Background         string  `json:"background"`
	RewardEstimationID *string `json:"reward_estimation_id"`
}

// ChatMessage is a single transcript entry.
type ChatMessage struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// ChatResult is the typed outcome of the chat endpoint, which returns either
// a message list or an error-shaped object with a detail field.
type ChatResult struct {
	Messages []ChatMessage
	Detail   string
}

// IsError reports whether the payload was an error object rather than a
// transcript.
func (r *ChatResult) IsError() bool {
	return r.Detail != ""
}
