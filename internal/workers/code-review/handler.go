// internal/workers/code-review/handler.go
package codereview

import (
	"context"
	"fmt"
	"strings"

	"market-solver/internal/agent"
	"market-solver/internal/llm"
)

// NoResponseSentinel is the marker both the agent and the de-duplication
// pass use to signal that no reply is owed.
const NoResponseSentinel = "NO_RESPONSE_NEEDED"

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// CompletionClient is the completion provider surface the responder needs.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Agent is the external code-modification agent.
type Agent interface {
	Run(ctx context.Context, task agent.Task) (string, error)
}

type Handler struct {
	config   *Config
	llm      CompletionClient
	agent    Agent
	enricher *Enricher
	logger   Logger
}

func NewHandler(config *Config, completion CompletionClient, codeAgent Agent, enricher *Enricher, log Logger) *Handler {
	return &Handler{
		config:   config,
		llm:      completion,
		agent:    codeAgent,
		enricher: enricher,
		logger: log.With(map[string]interface{}{
			"worker": "code-review",
		}),
	}
}

// Execute produces a review reply for an instance, or signals that none is
// needed. Delegation and cleanup failures degrade rather than aborting the
// instance.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	log := h.logger.With(map[string]interface{}{"instanceId": input.InstanceID})

	prCtx := h.enricher.FromTranscript(ctx, input.MessagesHistory)

	task := agent.Task{
		Model:       h.config.AgentModel,
		Instruction: buildInstruction(input, prCtx),
	}
	if prCtx != nil {
		task.RepoURL = prCtx.forkOrRepoURL()
		task.Branch = prCtx.Branch
	}

	raw, err := h.agent.Run(ctx, task)
	if err != nil {
		log.Error("agent delegation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return &Output{}
	}

	if raw == "" || strings.Contains(raw, NoResponseSentinel) {
		log.Info("no response needed", nil)
		return &Output{}
	}

	cleaned, err := h.removeRepeatedRequests(ctx, raw, input.MessagesHistory)
	if err != nil {
		// Conservative fallback: an uncleaned reply beats a dropped one.
		log.Warn("response cleanup failed, using raw response", map[string]interface{}{
			"error": err.Error(),
		})
		cleaned = raw
	}

	if cleaned == "" || strings.Contains(cleaned, NoResponseSentinel) {
		log.Info("nothing new to say after cleanup", nil)
		return &Output{}
	}

	return &Output{Message: cleaned, Respond: true}
}

// removeRepeatedRequests asks a second, cheaper completion to strip out
// everything the conversation already covers.
func (h *Handler) removeRepeatedRequests(ctx context.Context, response, messagesHistory string) (string, error) {
	cleaned, err := h.llm.Complete(ctx, llm.Request{
		Model:     h.config.WeakModel,
		System:    dedupInstruction,
		Prompt:    buildDedupPrompt(response, messagesHistory),
		Operation: "dedup",
	})
	if err != nil {
		return "", err
	}
	return cleaned, nil
}

const dedupInstruction = "You review draft replies before they are sent. " +
	"Keep only new, substantive code-change requests that are not already present in the conversation. " +
	"Exclude meta-comments about commit or branch hygiene. " +
	"If nothing new remains, reply with exactly " + NoResponseSentinel + "."

func buildInstruction(input *Input, prCtx *PullRequestContext) string {
	var parts []string

	parts = append(parts, "You are a code reviewer for a marketplace work item.")
	parts = append(parts, "Review the provider's work and either produce concise review feedback or questions,")
	parts = append(parts, fmt.Sprintf("or reply with exactly %s if no response is owed.", NoResponseSentinel))

	if input.Background != "" {
		parts = append(parts, "", "Task background:", input.Background)
	}

	if input.MessagesHistory != "" {
		parts = append(parts, "", "Conversation so far:", input.MessagesHistory)
	}

	if prCtx != nil {
		parts = append(parts, "", "Pull request under review:", prCtx.PullRequestURL)
		if prCtx.IssueURL != "" {
			parts = append(parts, "Related issue:", prCtx.IssueURL)
		}
		if prCtx.ForkOwner != "" && prCtx.Branch != "" {
			parts = append(parts, fmt.Sprintf("Head: %s:%s", prCtx.ForkOwner, prCtx.Branch))
		}
	}

	return strings.Join(parts, "\n")
}

func buildDedupPrompt(response, messagesHistory string) string {
	parts := []string{
		"Draft reply:",
		response,
	}

	if messagesHistory != "" {
		parts = append(parts, "", "Conversation so far:", messagesHistory)
	}

	return strings.Join(parts, "\n")
}
