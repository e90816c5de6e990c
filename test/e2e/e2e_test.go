// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-solver/internal/agent"
	"market-solver/internal/cache"
	"market-solver/internal/common/config"
	"market-solver/internal/common/database"
	"market-solver/internal/common/logger"
	"market-solver/internal/llm"
	"market-solver/internal/market"
	"market-solver/internal/solver"
	codereview "market-solver/internal/workers/code-review"
	rewardestimation "market-solver/internal/workers/reward-estimation"
)

const apiKey = "e2e-key"

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

// fakeMarketplace is an in-memory marketplace behind a real HTTP server. It
// records everything the solver submits.
type fakeMarketplace struct {
	mu        sync.Mutex
	proposals []map[string]interface{}
	instances map[string]map[string]interface{}
	chats     map[string]interface{}

	sentMessages    map[string][]string
	reportedRewards map[string][]float64

	server *httptest.Server
}

func newFakeMarketplace(t *testing.T) *fakeMarketplace {
	t.Helper()
	m := &fakeMarketplace{
		instances:       map[string]map[string]interface{}{},
		chats:           map[string]interface{}{},
		sentMessages:    map[string][]string{},
		reportedRewards: map[string][]float64{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

func (m *fakeMarketplace) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/v1/proposals/":
		json.NewEncoder(w).Encode(m.proposals)

	case strings.HasPrefix(path, "/v1/instances/") && strings.HasSuffix(path, "/report-reward"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/instances/"), "/report-reward")
		var body map[string]float64
		json.NewDecoder(r.Body).Decode(&body)
		m.reportedRewards[id] = append(m.reportedRewards[id], body["gen_reward"])

	case strings.HasPrefix(path, "/v1/instances/"):
		id := strings.TrimPrefix(path, "/v1/instances/")
		instance, ok := m.instances[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(instance)

	case strings.HasPrefix(path, "/v1/chat/send-message/"):
		id := strings.TrimPrefix(path, "/v1/chat/send-message/")
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		m.sentMessages[id] = append(m.sentMessages[id], body["message"])

	case strings.HasPrefix(path, "/v1/chat/"):
		id := strings.TrimPrefix(path, "/v1/chat/")
		chat, ok := m.chats[id]
		if !ok {
			json.NewEncoder(w).Encode(map[string]string{"detail": "chat not found"})
			return
		}
		json.NewEncoder(w).Encode(chat)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *fakeMarketplace) addAwardedInstance(id, background string, chat []map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.proposals = append(m.proposals, map[string]interface{}{
		"instance_id":   id,
		"status":        "awarded",
		"creation_date": time.Now().UTC().Format(time.RFC3339),
	})
	m.instances[id] = map[string]interface{}{
		"id":                   id,
		"status":               "resolved",
		"background":           background,
		"reward_estimation_id": "re-" + id,
	}
	if chat != nil {
		m.chats[id] = chat
	}
}

func (m *fakeMarketplace) messages(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sentMessages[id]...)
}

func (m *fakeMarketplace) rewards(id string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.reportedRewards[id]...)
}

// completionServer serves the chat-completions shape with a fixed answer and
// counts how often it was hit.
type completionServer struct {
	mu     sync.Mutex
	answer string
	calls  int
	server *httptest.Server
}

func newCompletionServer(t *testing.T, answer string) *completionServer {
	t.Helper()
	s := &completionServer{answer: answer}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		answer := s.answer
		s.mu.Unlock()

		fmt.Fprintf(w, `{"choices": [{"message": {"role": "assistant", "content": %q}}]}`, answer)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *completionServer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newAgentServer(t *testing.T, output string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output": output})
	}))
	t.Cleanup(server.Close)
	return server
}

func solverConfig(flow string) *solver.Config {
	return &solver.Config{
		Flow:                 flow,
		AwardedProposalCode:  "awarded",
		ResolvedInstanceCode: "resolved",
		CounterpartySender:   "requester",
		MaxCreditPerInstance: 1.0,
		ProposalWindow:       24 * time.Hour,
		MaxChatTurns:         15,
	}
}

func chatAt(sender, message, ts string) map[string]string {
	return map[string]string{"sender": sender, "message": message, "timestamp": ts}
}

// TestRewardFlowEndToEnd drives a full reward cycle through real HTTP
// clients, with the prompt cache on a redis backend.
func TestRewardFlowEndToEnd(t *testing.T) {
	marketplace := newFakeMarketplace(t)
	marketplace.addAwardedInstance("inst-1", "implement the retry queue", []map[string]string{
		chatAt("provider", "finished, see the attached patch", "2026-08-30T10:05:00"),
		chatAt("requester", "please estimate the reward", "2026-08-30T10:00:00"),
	})

	completion := newCompletionServer(t, "0.65")

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()
	require.NoError(t, rdb.Ping(context.Background()))

	log := logger.NewTestLogger(t)
	promptCache := cache.NewRedisCache(rdb, time.Hour, "market-solver:cache", log)

	marketClient := market.NewClient(marketplace.server.URL, apiKey, 2*time.Second)
	completionClient := llm.NewClient(completion.server.URL, "sk-e2e", 2*time.Second)

	estimator := rewardestimation.NewHandler(
		rewardestimation.LoadConfig(),
		completionClient,
		promptCache,
		&rewardLoggerAdapter{log},
	)

	cfg := solverConfig(solver.FlowReward)
	orchestrator := solver.NewOrchestrator(
		marketClient,
		solver.NewResolver(marketClient, cfg, log),
		estimator,
		nil,
		cfg,
		log,
		nil,
	)

	orchestrator.SolveInstances(context.Background())

	require.Len(t, marketplace.messages("inst-1"), 1)
	assert.Equal(t, "Estimated reward value: 0.65", marketplace.messages("inst-1")[0])
	require.Len(t, marketplace.rewards("inst-1"), 1)
	assert.Equal(t, 0.65, marketplace.rewards("inst-1")[0])

	// A second cycle over the same instance is answered from the cache.
	orchestrator.SolveInstances(context.Background())

	assert.Equal(t, 1, completion.callCount(), "second cycle must not call the provider again")
	require.Len(t, marketplace.rewards("inst-1"), 2)
	assert.Equal(t, marketplace.rewards("inst-1")[0], marketplace.rewards("inst-1")[1])
}

// TestReviewFlowEndToEnd drives a review cycle: agent delegation, reply
// cleanup, and chat submission.
func TestReviewFlowEndToEnd(t *testing.T) {
	marketplace := newFakeMarketplace(t)
	marketplace.addAwardedInstance("inst-2", "fix the flaky parser test", []map[string]string{
		chatAt("provider", "pushed a fix", "2026-08-30T09:00:00"),
		chatAt("requester", "can you take a look at my changes?", "2026-08-30T09:30:00"),
	})

	agentServer := newAgentServer(t, "Please rename the helper and add a nil check.")
	completion := newCompletionServer(t, "Please add a nil check.")

	log := logger.NewTestLogger(t)
	reviewLog := &reviewLoggerAdapter{log}

	reviewer := codereview.NewHandler(
		codereview.LoadConfig(),
		llm.NewClient(completion.server.URL, "sk-e2e", 2*time.Second),
		agent.NewClient(agentServer.URL, "ak-e2e", 2*time.Second),
		codereview.NewEnricher(2*time.Second, reviewLog),
		reviewLog,
	)

	marketClient := market.NewClient(marketplace.server.URL, apiKey, 2*time.Second)
	cfg := solverConfig(solver.FlowReview)
	orchestrator := solver.NewOrchestrator(
		marketClient,
		solver.NewResolver(marketClient, cfg, log),
		nil,
		reviewer,
		cfg,
		log,
		nil,
	)

	orchestrator.SolveInstances(context.Background())

	require.Len(t, marketplace.messages("inst-2"), 1)
	assert.Equal(t, "Please add a nil check.", marketplace.messages("inst-2")[0])
	assert.Empty(t, marketplace.rewards("inst-2"))
}

// TestReviewFlowEndToEnd_ProviderSpokeLast checks the turn gate over the
// wire: nothing goes out when the transcript does not owe a reply.
func TestReviewFlowEndToEnd_ProviderSpokeLast(t *testing.T) {
	marketplace := newFakeMarketplace(t)
	marketplace.addAwardedInstance("inst-3", "fix the flaky parser test", []map[string]string{
		chatAt("requester", "can you take a look?", "2026-08-30T09:00:00"),
		chatAt("provider", "done, merged", "2026-08-30T09:30:00"),
	})

	agentServer := newAgentServer(t, "anything")
	completion := newCompletionServer(t, "anything")

	log := logger.NewTestLogger(t)
	reviewLog := &reviewLoggerAdapter{log}

	reviewer := codereview.NewHandler(
		codereview.LoadConfig(),
		llm.NewClient(completion.server.URL, "sk-e2e", 2*time.Second),
		agent.NewClient(agentServer.URL, "ak-e2e", 2*time.Second),
		codereview.NewEnricher(2*time.Second, reviewLog),
		reviewLog,
	)

	marketClient := market.NewClient(marketplace.server.URL, apiKey, 2*time.Second)
	cfg := solverConfig(solver.FlowReview)
	orchestrator := solver.NewOrchestrator(
		marketClient,
		solver.NewResolver(marketClient, cfg, log),
		nil,
		reviewer,
		cfg,
		log,
		nil,
	)

	orchestrator.SolveInstances(context.Background())

	assert.Empty(t, marketplace.messages("inst-3"))
	assert.Equal(t, 0, completion.callCount())
}
