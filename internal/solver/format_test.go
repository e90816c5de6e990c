// internal/solver/format_test.go
package solver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"market-solver/internal/market"
)

func msgAt(sender, text string, minute int) market.ChatMessage {
	return market.ChatMessage{
		Sender:    sender,
		Message:   text,
		Timestamp: market.Timestamp{Time: time.Date(2026, 8, 30, 10, minute, 0, 0, time.UTC)},
	}
}

func TestSortMessages_OrdersByTimestamp(t *testing.T) {
	messages := []market.ChatMessage{
		msgAt("provider", "third", 30),
		msgAt("requester", "first", 10),
		msgAt("provider", "second", 20),
	}

	sorted := SortMessages(messages)

	assert.Equal(t, "first", sorted[0].Message)
	assert.Equal(t, "second", sorted[1].Message)
	assert.Equal(t, "third", sorted[2].Message)

	// Input slice is left untouched.
	assert.Equal(t, "third", messages[0].Message)
}

func TestSortMessages_StableForEqualTimestamps(t *testing.T) {
	messages := []market.ChatMessage{
		msgAt("requester", "a", 10),
		msgAt("provider", "b", 10),
	}

	sorted := SortMessages(messages)

	assert.Equal(t, "a", sorted[0].Message)
	assert.Equal(t, "b", sorted[1].Message)
}

func TestFormatMessages(t *testing.T) {
	messages := []market.ChatMessage{
		msgAt("requester", "can you review this?", 10),
		msgAt("provider", "sure", 20),
	}

	flat := FormatMessages(messages)

	assert.Equal(t, "requester: can you review this?\n\nprovider: sure", flat)
}

func TestFormatMessages_Empty(t *testing.T) {
	assert.Equal(t, "", FormatMessages(nil))
}
