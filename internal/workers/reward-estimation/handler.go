// internal/workers/reward-estimation/handler.go
package rewardestimation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"market-solver/internal/cache"
	apperrors "market-solver/internal/common/errors"
	"market-solver/internal/llm"
)

const systemInstruction = "You are an AI that evaluates provider work quality and determines appropriate rewards."

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// CompletionClient is the completion provider surface the estimator needs.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

type Handler struct {
	config *Config
	llm    CompletionClient
	cache  cache.Cache
	logger Logger
}

func NewHandler(config *Config, completion CompletionClient, promptCache cache.Cache, log Logger) *Handler {
	return &Handler{
		config: config,
		llm:    completion,
		cache:  promptCache,
		logger: log.With(map[string]interface{}{
			"worker": "reward-estimation",
		}),
	}
}

// Execute estimates the reward for a unit of work. Provider and network
// failures never propagate: the fail-safe outcome is a zero reward.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	h.cache.CleanupExpired()

	prompt := buildPrompt(input.Background, input.ChatMessages, input.MaxValue)

	if cached, ok := h.cache.Get(prompt, h.config.Model); ok {
		reward, err := strconv.ParseFloat(strings.TrimSpace(cached), 64)
		if err == nil {
			h.logger.Info("using cached reward estimate", map[string]interface{}{
				"reward": reward,
			})
			return &Output{Reward: reward, Cached: true}
		}

		// A single malformed entry means the whole store is suspect.
		h.logger.Error("cached response is not a number, clearing cache", map[string]interface{}{
			"error": apperrors.NewCachePoisonedError(cached).Error(),
		})
		h.cache.Clear()
	}

	temperature := h.config.Temperature
	result, err := h.llm.Complete(ctx, llm.Request{
		Model:       h.config.Model,
		System:      systemInstruction,
		Prompt:      prompt,
		Temperature: &temperature,
		Operation:   "reward-estimate",
	})
	if err != nil {
		h.logger.Error("reward estimation call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return &Output{Reward: 0}
	}

	reward, err := strconv.ParseFloat(strings.TrimSpace(result), 64)
	if err != nil {
		h.logger.Error("completion response is not a number", map[string]interface{}{
			"error": apperrors.NewInvalidRewardFormatError(result).Error(),
		})
		return &Output{Reward: 0}
	}

	reward = clamp(reward, 0, input.MaxValue)
	h.cache.Store(prompt, h.config.Model, formatFloat(reward))

	h.logger.Info("estimated reward", map[string]interface{}{
		"reward": reward,
	})
	return &Output{Reward: reward}
}

// buildPrompt renders the evaluation prompt. It must stay a pure function of
// its inputs so identical estimations hit the cache.
func buildPrompt(background, chatMessages string, maxValue float64) string {
	maxStr := formatFloat(maxValue)

	parts := []string{
		fmt.Sprintf("Evaluate the quality of work and determine a reward between 0 and %s.", maxStr),
		"Consider:",
		"- Completeness of the solution",
		"- Code quality and best practices",
		"- Communication clarity",
		"- Problem-solving approach",
		"",
		"Background context:",
		background,
	}

	if chatMessages != "" {
		parts = append(parts,
			"",
			"Conversation history:",
			chatMessages,
		)
	}

	parts = append(parts,
		"",
		fmt.Sprintf("Provide ONLY a single float number between 0 and %s.", maxStr),
		"Do not include any other text or explanations.",
	)

	return strings.Join(parts, "\n")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
