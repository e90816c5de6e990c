// cmd/solver/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"market-solver/internal/agent"
	"market-solver/internal/cache"
	"market-solver/internal/common/config"
	"market-solver/internal/common/database"
	"market-solver/internal/common/logger"
	"market-solver/internal/common/observability"
	"market-solver/internal/llm"
	"market-solver/internal/market"
	"market-solver/internal/solver"
	codereview "market-solver/internal/workers/code-review"
	rewardestimation "market-solver/internal/workers/reward-estimation"
)

// Logger adapters to bridge logger.Logger to worker-specific Logger interfaces
type rewardLoggerAdapter struct {
	logger.Logger
}

func (a *rewardLoggerAdapter) With(fields map[string]interface{}) rewardestimation.Logger {
	return &rewardLoggerAdapter{a.Logger.With(fields)}
}

type reviewLoggerAdapter struct {
	logger.Logger
}

func (a *reviewLoggerAdapter) With(fields map[string]interface{}) codereview.Logger {
	return &reviewLoggerAdapter{a.Logger.With(fields)}
}

// retryWithBackoff attempts to execute a function with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting instance solver...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger now that the configured level and format are known.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log = logger.NewZapAdapter(zapLog)

	obs := observability.New("instance-solver")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Prompt cache ---
	cacheTTL := time.Duration(cfg.Cache.TTLHours) * time.Hour
	var promptCache cache.Cache
	if cfg.Cache.Backend == "redis" {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Cache.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		promptCache = cache.NewRedisCache(rdb, cacheTTL, cfg.Cache.KeyPrefix, log)
	} else {
		promptCache = cache.NewMemoryCache(cacheTTL)
	}

	// --- External clients ---
	marketClient := market.NewClient(
		cfg.Market.BaseURL,
		cfg.Market.APIKey,
		config.GetDuration(cfg.Market.Timeout),
	)

	completionClient := llm.NewClient(
		cfg.Completion.BaseURL,
		cfg.Completion.APIKey,
		config.GetDuration(cfg.Completion.Timeout),
	)

	agentClient := agent.NewClient(
		cfg.Agent.BaseURL,
		cfg.Agent.APIKey,
		config.GetDuration(cfg.Agent.Timeout),
	)

	// --- Workers ---
	estimatorCfg := rewardestimation.LoadConfig()
	estimatorCfg.Model = cfg.Completion.Model
	estimator := rewardestimation.NewHandler(estimatorCfg, completionClient, promptCache, &rewardLoggerAdapter{log})

	reviewerCfg := codereview.LoadConfig()
	reviewerCfg.WeakModel = cfg.Completion.WeakModel
	if cfg.Agent.Model != "" {
		reviewerCfg.AgentModel = cfg.Agent.Model
	}
	reviewLog := &reviewLoggerAdapter{log}
	enricher := codereview.NewEnricher(config.GetDuration(cfg.Market.Timeout), reviewLog)
	reviewer := codereview.NewHandler(reviewerCfg, completionClient, agentClient, enricher, reviewLog)

	// --- Solver ---
	solverCfg := &solver.Config{
		Flow:                 cfg.Solver.Flow,
		AwardedProposalCode:  cfg.Market.AwardedProposalCode,
		ResolvedInstanceCode: cfg.Market.ResolvedInstanceCode,
		CounterpartySender:   "requester",
		MaxCreditPerInstance: cfg.Solver.MaxCreditPerInstance,
		ProposalWindow:       time.Duration(cfg.Solver.ProposalWindow) * time.Hour,
		MaxChatTurns:         cfg.Solver.MaxChatTurns,
	}

	resolver := solver.NewResolver(marketClient, solverCfg, log)
	orchestrator := solver.NewOrchestrator(marketClient, resolver, estimator, reviewer, solverCfg, log, obs)

	// --- Metrics + pprof endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics endpoint failed", zap.Error(err))
		}
	}()

	zapLog.Info("solver running",
		zap.String("flow", cfg.Solver.Flow),
		zap.Duration("pollInterval", config.GetDuration(cfg.Solver.PollInterval)),
	)

	// First cycle immediately, then on the ticker.
	orchestrator.SolveInstances(ctx)

	ticker := time.NewTicker(config.GetDuration(cfg.Solver.PollInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Plain return so the teardown defers (redis close, meter
			// shutdown, log sync) actually run.
			zapLog.Info("shutdown signal received, stopping solver")
			return
		case <-ticker.C:
			orchestrator.SolveInstances(ctx)
		}
	}
}
