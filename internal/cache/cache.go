// internal/cache/cache.go

// Package cache holds previously computed completion responses keyed by
// (prompt, model). Identical evaluation prompts are common across retries,
// so a hit avoids a duplicate paid completion call and keeps reward
// estimates idempotent within the TTL.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the prompt/response cache contract.
type Cache interface {
	// CleanupExpired removes all entries whose age exceeds the TTL. Safe to
	// call on an empty store.
	CleanupExpired()

	// Get returns the cached response for an exact (prompt, model) match.
	// Expired entries are never returned.
	Get(prompt, model string) (string, bool)

	// Store inserts or overwrites an entry timestamped now.
	Store(prompt, model, response string)

	// Clear empties the entire store. Used as a self-healing action when a
	// consumer finds a malformed entry: one observed corruption means the
	// full cache content cannot be trusted.
	Clear()
}

// Entry is a single cached response.
type Entry struct {
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the entry is older than ttl at the given instant.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) >= ttl
}

// entryKey derives a fixed-length key from the (prompt, model) pair.
func entryKey(prompt, model string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
