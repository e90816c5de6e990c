// internal/solver/resolver.go
package solver

import (
	"context"
	"time"

	apperrors "market-solver/internal/common/errors"
	"market-solver/internal/common/logger"
	"market-solver/internal/market"
)

// MarketAPI is the marketplace surface the solver consumes.
type MarketAPI interface {
	GetProposals(ctx context.Context) ([]market.Proposal, error)
	GetInstance(ctx context.Context, instanceID string) (*market.Instance, error)
	GetChat(ctx context.Context, instanceID string) (*market.ChatResult, error)
	SendMessage(ctx context.Context, instanceID, message string) error
	ReportReward(ctx context.Context, instanceID string, reward float64) error
}

// Config holds the solver's flow and eligibility settings.
type Config struct {
	// Flow selects the deployment behavior: FlowReward or FlowReview.
	Flow string

	AwardedProposalCode  string
	ResolvedInstanceCode string

	// CounterpartySender is the transcript role whose messages may owe a
	// review response.
	CounterpartySender string

	MaxCreditPerInstance float64
	ProposalWindow       time.Duration
	MaxChatTurns         int
}

const (
	FlowReward = "reward"
	FlowReview = "review"
)

// InstanceToSolve is the per-cycle record describing everything known about
// an eligible instance. Constructed once per cycle, never persisted.
type InstanceToSolve struct {
	Instance              market.Instance
	MessagesHistory       string
	ProviderNeedsResponse bool
}

// Resolver fetches an instance plus its transcript and decides eligibility.
type Resolver struct {
	market MarketAPI
	config *Config
	logger logger.Logger
}

func NewResolver(marketAPI MarketAPI, config *Config, log logger.Logger) *Resolver {
	return &Resolver{
		market: marketAPI,
		config: config,
		logger: log.With(map[string]interface{}{"component": "resolver"}),
	}
}

// Resolve returns the instance record, or nil when the instance is not
// eligible this cycle. Fail-closed: any fetch or decode problem yields nil.
func (r *Resolver) Resolve(ctx context.Context, instanceID string) *InstanceToSolve {
	instance, err := r.market.GetInstance(ctx, instanceID)
	if err != nil {
		r.logger.Warn("instance fetch failed", map[string]interface{}{
			"instanceId": instanceID,
			"error":      err.Error(),
		})
		return nil
	}

	if instance.Status != r.config.ResolvedInstanceCode {
		return nil
	}

	if r.config.Flow == FlowReward && instance.RewardEstimationID == nil {
		return nil
	}

	chat, err := r.market.GetChat(ctx, instanceID)
	if err != nil {
		r.logger.Warn("chat fetch failed", map[string]interface{}{
			"instanceId": instanceID,
			"error":      err.Error(),
		})
		return nil
	}

	if chat.IsError() {
		r.logger.Warn("chat returned error payload", map[string]interface{}{
			"instanceId": instanceID,
			"error":      apperrors.NewChatErrorPayloadError(chat.Detail).Error(),
		})
		return nil
	}

	if len(chat.Messages) == 0 {
		return &InstanceToSolve{Instance: *instance}
	}

	sorted := SortMessages(chat.Messages)
	last := sorted[len(sorted)-1]

	return &InstanceToSolve{
		Instance:        *instance,
		MessagesHistory: FormatMessages(sorted),
		// The turn ceiling bounds unbounded back-and-forth between the
		// automated responder and a human.
		ProviderNeedsResponse: last.Sender == r.config.CounterpartySender &&
			len(sorted) < r.config.MaxChatTurns,
	}
}
