// internal/solver/format.go
package solver

import (
	"fmt"
	"sort"
	"strings"

	"market-solver/internal/market"
)

// SortMessages orders a transcript ascending by timestamp. The sort is
// stable so identical input sets always flatten to the same string.
func SortMessages(messages []market.ChatMessage) []market.ChatMessage {
	sorted := make([]market.ChatMessage, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp.Time)
	})
	return sorted
}

// FormatMessages flattens an ordered transcript into "sender: text" blocks.
func FormatMessages(messages []market.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Sender, m.Message))
	}
	return strings.Join(lines, "\n\n")
}
