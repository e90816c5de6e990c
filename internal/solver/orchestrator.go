// internal/solver/orchestrator.go
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "market-solver/internal/common/errors"
	"market-solver/internal/common/logger"
	"market-solver/internal/common/metrics"
	"market-solver/internal/common/observability"
	"market-solver/internal/market"
	codereview "market-solver/internal/workers/code-review"
	rewardestimation "market-solver/internal/workers/reward-estimation"
)

// Terminal states per instance within one cycle.
const (
	stateSkipped   = "skipped"
	stateResponded = "responded"
	stateSubmitted = "submitted"
	stateFailed    = "failed"
)

// RewardEstimator produces a reward estimate for an instance.
type RewardEstimator interface {
	Execute(ctx context.Context, input *rewardestimation.Input) *rewardestimation.Output
}

// Reviewer produces a review reply for an instance, or signals none is owed.
type Reviewer interface {
	Execute(ctx context.Context, input *codereview.Input) *codereview.Output
}

// Orchestrator runs one polling cycle: list awarded proposals, resolve each
// instance, respond per the configured flow. Instances are processed
// strictly sequentially; one bad instance never aborts its siblings.
type Orchestrator struct {
	market    MarketAPI
	resolver  *Resolver
	estimator RewardEstimator
	reviewer  Reviewer
	config    *Config
	logger    logger.Logger
	obs       *observability.Observability
}

func NewOrchestrator(
	marketAPI MarketAPI,
	resolver *Resolver,
	estimator RewardEstimator,
	reviewer Reviewer,
	config *Config,
	log logger.Logger,
	obs *observability.Observability,
) *Orchestrator {
	return &Orchestrator{
		market:    marketAPI,
		resolver:  resolver,
		estimator: estimator,
		reviewer:  reviewer,
		config:    config,
		logger:    log,
		obs:       obs,
	}
}

// SolveInstances runs a single polling cycle. Only a failure to list
// proposals aborts the cycle; everything below that is isolated per
// instance.
func (o *Orchestrator) SolveInstances(ctx context.Context) {
	start := time.Now()
	log := o.logger.With(map[string]interface{}{
		"cycleId": uuid.NewString(),
	})

	proposals, err := o.market.GetProposals(ctx)
	if err != nil {
		log.Error("failed to list proposals, aborting cycle", map[string]interface{}{
			"error": err.Error(),
		})
		o.recordCycle(ctx, start, "error")
		return
	}

	awarded := o.filterAwarded(proposals, start)
	log.Info("found awarded proposals in window", map[string]interface{}{
		"count":  len(awarded),
		"window": o.config.ProposalWindow.String(),
	})

	for _, p := range awarded {
		o.processProposal(ctx, log, p)
	}

	o.recordCycle(ctx, start, "ok")
}

// filterAwarded keeps proposals with the awarded status created within the
// trailing window, measured from cycle start.
func (o *Orchestrator) filterAwarded(proposals []market.Proposal, now time.Time) []market.Proposal {
	cutoff := now.Add(-o.config.ProposalWindow)

	var awarded []market.Proposal
	for _, p := range proposals {
		if p.Status == o.config.AwardedProposalCode && p.CreationDate.After(cutoff) {
			awarded = append(awarded, p)
		}
	}
	return awarded
}

func (o *Orchestrator) processProposal(ctx context.Context, log logger.Logger, p market.Proposal) {
	instance := o.resolver.Resolve(ctx, p.InstanceID)
	if instance == nil {
		metrics.InstancesProcessed.WithLabelValues(stateSkipped).Inc()
		return
	}

	log = log.With(map[string]interface{}{"instanceId": instance.Instance.ID})
	log.Info("solving instance", nil)

	var state string
	switch o.config.Flow {
	case FlowReview:
		state = o.solveReview(ctx, log, instance)
	default:
		state = o.solveReward(ctx, log, instance)
	}
	metrics.InstancesProcessed.WithLabelValues(state).Inc()
}

// solveReward estimates a reward, discloses it in chat and reports it back.
// The two outbound calls are independent best-effort submissions.
func (o *Orchestrator) solveReward(ctx context.Context, log logger.Logger, instance *InstanceToSolve) string {
	out := o.estimator.Execute(ctx, &rewardestimation.Input{
		Background:   instance.Instance.Background,
		ChatMessages: instance.MessagesHistory,
		MaxValue:     o.config.MaxCreditPerInstance,
	})

	if out.Reward < 0 {
		log.Info("negative reward value, skipping instance", map[string]interface{}{
			"reward": out.Reward,
		})
		return stateSkipped
	}

	message := fmt.Sprintf("Estimated reward value: %v", out.Reward)

	state := stateFailed
	if err := o.market.SendMessage(ctx, instance.Instance.ID, message); err != nil {
		log.Error("failed to send reward message", map[string]interface{}{
			"errorCode": string(apperrors.ErrCodeMessageSendFailed),
			"error":     err.Error(),
		})
	} else {
		log.Info("sent reward message", map[string]interface{}{"reward": out.Reward})
		state = stateResponded
	}

	if err := o.market.ReportReward(ctx, instance.Instance.ID, out.Reward); err != nil {
		log.Error("failed to report reward", map[string]interface{}{
			"errorCode": string(apperrors.ErrCodeRewardSubmitFailed),
			"error":     err.Error(),
		})
	} else {
		log.Info("submitted reward", map[string]interface{}{"reward": out.Reward})
		state = stateSubmitted
	}

	return state
}

// solveReview produces a review reply when the transcript owes one.
func (o *Orchestrator) solveReview(ctx context.Context, log logger.Logger, instance *InstanceToSolve) string {
	if !instance.ProviderNeedsResponse {
		return stateSkipped
	}

	out := o.reviewer.Execute(ctx, &codereview.Input{
		InstanceID:      instance.Instance.ID,
		Background:      instance.Instance.Background,
		MessagesHistory: instance.MessagesHistory,
	})

	if !out.Respond || out.Message == "" {
		return stateSkipped
	}

	if err := o.market.SendMessage(ctx, instance.Instance.ID, out.Message); err != nil {
		log.Error("failed to send review message", map[string]interface{}{
			"error": err.Error(),
		})
		return stateFailed
	}

	log.Info("sent review message", nil)
	return stateResponded
}

func (o *Orchestrator) recordCycle(ctx context.Context, start time.Time, outcome string) {
	elapsed := time.Since(start)
	metrics.SolveCyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	if o.obs != nil {
		o.obs.RecordCycle(ctx, outcome)
		o.obs.RecordCycleDuration(ctx, elapsed, outcome)
	}
}
