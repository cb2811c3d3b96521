package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics (recorded by the engine client)
	RunsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_runs_started_total",
			Help: "Total number of research runs started",
		},
		[]string{"workflow_type"},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_runs_completed_total",
			Help: "Total number of research runs completed, by outcome",
		},
		[]string{"workflow_type", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepresearch_run_duration_seconds",
			Help:    "Research run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"workflow_type"},
	)

	// Model backend metrics
	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_model_calls_total",
			Help: "Total number of structured model calls",
		},
		[]string{"operation", "status"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepresearch_model_call_duration_seconds",
			Help:    "Structured model call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// Tool metrics
	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tool_invocations_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepresearch_tool_duration_seconds",
			Help:    "Tool invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// Decision metrics
	ToolCallsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tool_calls_requested_total",
			Help: "Tool calls requested by model decisions",
		},
		[]string{"agent", "tool"},
	)

	ToolCallIDsReassigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tool_call_ids_reassigned_total",
			Help: "Tool call ids replaced because they were empty or duplicated",
		},
		[]string{"agent"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tool_cache_hits_total",
			Help: "Total number of tool result cache hits",
		},
		[]string{"tool"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tool_cache_misses_total",
			Help: "Total number of tool result cache misses",
		},
		[]string{"tool"},
	)
)
