package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.temporal.io/sdk/workflow"
)

var (
	// Supervisor loop outcomes
	SupervisorStops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_supervisor_stops_total",
			Help: "Supervisor loop terminations by stop reason",
		},
		[]string{"reason"},
	)

	SupervisorIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_supervisor_iterations",
			Help:    "Supervisor iterations per run",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
		},
	)

	// Researcher dispatch outcomes
	ResearchersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_researchers_total",
			Help: "Researcher sub-agents by outcome",
		},
		[]string{"outcome"},
	)

	ResearcherIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_researcher_iterations",
			Help:    "Decision rounds per researcher",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12},
		},
	)

	// Scope controller routing
	ScopeDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_scope_decisions_total",
			Help: "Scope controller routing decisions",
		},
		[]string{"decision"},
	)
)

// Workflow code runs again on replay; every recorder skips replayed history.

// RecordSupervisorStop records why a supervisor loop ended
func RecordSupervisorStop(ctx workflow.Context, reason string, iterations int) {
	if workflow.IsReplaying(ctx) {
		return
	}
	SupervisorStops.WithLabelValues(reason).Inc()
	SupervisorIterations.Observe(float64(iterations))
}

// RecordResearcher records one researcher outcome: completed, truncated or failed
func RecordResearcher(ctx workflow.Context, outcome string) {
	if workflow.IsReplaying(ctx) {
		return
	}
	ResearchersDispatched.WithLabelValues(outcome).Inc()
}

// RecordResearcherIterations records how many rounds a researcher used
func RecordResearcherIterations(ctx workflow.Context, iterations int) {
	if workflow.IsReplaying(ctx) {
		return
	}
	ResearcherIterations.Observe(float64(iterations))
}

// RecordScopeDecision records whether the scope controller asked a question
func RecordScopeDecision(ctx workflow.Context, decision string) {
	if workflow.IsReplaying(ctx) {
		return
	}
	ScopeDecisions.WithLabelValues(decision).Inc()
}
