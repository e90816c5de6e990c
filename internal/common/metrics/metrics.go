// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SolveCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_cycles_total",
			Help: "Total number of polling cycles by outcome",
		},
		[]string{"outcome"},
	)

	InstancesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_instances_processed_total",
			Help: "Total number of instances processed per terminal state",
		},
		[]string{"state"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "solver_cycle_duration_seconds",
			Help: "Duration of a full polling cycle in seconds",
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_prompt_cache_requests_total",
			Help: "Prompt cache lookups by result",
		},
		[]string{"result"},
	)

	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_completion_requests_total",
			Help: "Completion provider calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	AgentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_agent_requests_total",
			Help: "Code-modification agent calls by status",
		},
		[]string{"status"},
	)
)
