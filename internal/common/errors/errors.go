// internal/common/errors/errors.go

// Package errors provides standardized error handling for the solver pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMarketUnavailable   ErrorCode = "MARKET_UNAVAILABLE"
	ErrCodeMarketBadPayload    ErrorCode = "MARKET_BAD_PAYLOAD"
	ErrCodeChatErrorPayload    ErrorCode = "CHAT_ERROR_PAYLOAD"
	ErrCodeInvalidRewardFormat ErrorCode = "INVALID_REWARD_FORMAT"
	ErrCodeCachePoisoned       ErrorCode = "CACHE_POISONED"
	ErrCodeLLMCallFailed       ErrorCode = "LLM_CALL_FAILED"
	ErrCodeAgentFailed         ErrorCode = "AGENT_FAILED"
	ErrCodeEnrichmentFailed    ErrorCode = "ENRICHMENT_FAILED"
	ErrCodeMessageSendFailed   ErrorCode = "MESSAGE_SEND_FAILED"
	ErrCodeRewardSubmitFailed  ErrorCode = "REWARD_SUBMIT_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMarketUnavailableError marks a transient marketplace API failure. The
// orchestrator treats it as terminal for the affected step, never retried
// within a cycle.
func NewMarketUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarketUnavailable,
		Message:   "Marketplace API request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMarketBadPayloadError marks a marketplace payload that failed schema
// validation or decoding.
func NewMarketBadPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarketBadPayload,
		Message:   "Marketplace payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChatErrorPayloadError marks a chat endpoint response shaped as an error
// object rather than a message list.
func NewChatErrorPayloadError(detail string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChatErrorPayload,
		Message:   "Chat endpoint returned an error payload",
		Details:   detail,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRewardFormatError marks a completion answer that could not be
// parsed as a number.
func NewInvalidRewardFormatError(raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRewardFormat,
		Message:   "Completion response is not a valid number",
		Details:   raw,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCachePoisonedError marks a cached value that failed a downstream format
// check, triggering a full cache clear.
func NewCachePoisonedError(raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCachePoisoned,
		Message:   "Cached response failed format check",
		Details:   raw,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMCallFailedError marks a completion provider failure.
func NewLLMCallFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMCallFailed,
		Message:   "Completion provider request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentFailedError marks a code-modification agent failure.
func NewAgentFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAgentFailed,
		Message:   "Code-modification agent request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEnrichmentFailedError marks a best-effort pull-request enrichment
// failure. Never fatal, logged as a warning and omitted.
func NewEnrichmentFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEnrichmentFailed,
		Message:   "Pull-request enrichment failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
