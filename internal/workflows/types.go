package workflows

import (
	"fmt"
	"time"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

// StopReason records why a supervisor loop ended.
type StopReason string

const (
	StopIterationCap     StopReason = "iteration_cap"
	StopNoToolCalls      StopReason = "no_tool_calls"
	StopResearchComplete StopReason = "research_complete"
	StopCancelled        StopReason = "cancelled"
)

// FailurePolicy decides what a failed researcher does to its run.
type FailurePolicy string

const (
	// FailureIsolate records the failed topic and keeps going.
	FailureIsolate FailurePolicy = "isolate"
	// FailureAbort fails the whole run with an AggregationFailure.
	FailureAbort FailurePolicy = "abort"
)

// Defaults
const (
	DefaultMaxConcurrentResearchers = 3
	DefaultMaxIterations            = 6
	DefaultMaxResearcherIterations  = 8
)

// EmptySummaryFallback replaces an empty compressed summary.
const EmptySummaryFallback = "Error Synthesizing research report"

// SupervisorConfig bounds a supervisor run.
type SupervisorConfig struct {
	// MaxConcurrentResearchers caps researchers in flight; 0 means the default.
	MaxConcurrentResearchers int `json:"max_concurrent_researchers"`
	// MaxIterations caps supervisor decisions. Zero is honoured: no model call.
	MaxIterations int `json:"max_iterations"`
	// MaxResearcherIterations caps each researcher's rounds; 0 means the default.
	MaxResearcherIterations int           `json:"max_researcher_iterations"`
	FailurePolicy           FailurePolicy `json:"failure_policy,omitempty"`
	ModelTimeout            time.Duration `json:"model_timeout,omitempty"`
	ToolTimeout             time.Duration `json:"tool_timeout,omitempty"`
}

// DefaultSupervisorConfig returns the configuration used when callers set nothing.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MaxConcurrentResearchers: DefaultMaxConcurrentResearchers,
		MaxIterations:            DefaultMaxIterations,
		MaxResearcherIterations:  DefaultMaxResearcherIterations,
		FailurePolicy:            FailureIsolate,
	}
}

// Normalize fills unset fields and rejects invalid ones.
func (c SupervisorConfig) Normalize() (SupervisorConfig, error) {
	switch {
	case c.MaxConcurrentResearchers < 0:
		return c, &models.ConfigurationError{Setting: "max_concurrent_researchers", Reason: "must be at least 1"}
	case c.MaxIterations < 0:
		return c, &models.ConfigurationError{Setting: "max_iterations", Reason: "must not be negative"}
	case c.MaxResearcherIterations < 0:
		return c, &models.ConfigurationError{Setting: "max_researcher_iterations", Reason: "must not be negative"}
	}
	if c.MaxConcurrentResearchers == 0 {
		c.MaxConcurrentResearchers = DefaultMaxConcurrentResearchers
	}
	if c.MaxResearcherIterations == 0 {
		c.MaxResearcherIterations = DefaultMaxResearcherIterations
	}
	switch c.FailurePolicy {
	case "":
		c.FailurePolicy = FailureIsolate
	case FailureIsolate, FailureAbort:
	default:
		return c, &models.ConfigurationError{
			Setting: "failure_policy",
			Reason:  fmt.Sprintf("unknown policy %q (want isolate or abort)", c.FailurePolicy),
		}
	}
	return c, nil
}

// ScopeInput is the input to ScopeWorkflow
type ScopeInput struct {
	Messages     []models.Message `json:"messages"`
	ModelTimeout time.Duration    `json:"model_timeout,omitempty"`
}

// ScopeState is owned by one scope run.
type ScopeState struct {
	Conversation  []models.Message
	ResearchBrief string
}

// ScopeResult is either a clarification question or a research brief.
type ScopeResult struct {
	NeedsClarification bool             `json:"needs_clarification"`
	Question           string           `json:"question,omitempty"`
	ResearchBrief      string           `json:"research_brief,omitempty"`
	Messages           []models.Message `json:"messages"`
}

// ResearcherInput is the input to ResearcherWorkflow
type ResearcherInput struct {
	Topic         string        `json:"topic"`
	MaxIterations int           `json:"max_iterations"`
	Date          string        `json:"date"`
	ModelTimeout  time.Duration `json:"model_timeout,omitempty"`
	ToolTimeout   time.Duration `json:"tool_timeout,omitempty"`
}

// ResearcherState is owned by one researcher child workflow.
type ResearcherState struct {
	Topic             string
	Messages          []models.Message
	CompressedSummary string
	RawNotes          []string
	Iterations        int
}

// ResearcherResult is what a researcher hands back to its supervisor.
type ResearcherResult struct {
	Topic      string   `json:"topic"`
	Summary    string   `json:"summary"`
	RawNotes   []string `json:"raw_notes"`
	Iterations int      `json:"iterations"`
	// Truncated is set when the iteration cap forced compression.
	Truncated bool `json:"truncated,omitempty"`
}

// SupervisorInput is the input to SupervisorWorkflow
type SupervisorInput struct {
	ResearchBrief string           `json:"research_brief"`
	Config        SupervisorConfig `json:"config"`
}

// SupervisorState is owned by one supervisor run.
type SupervisorState struct {
	Messages       []models.Message
	ResearchBrief  string
	IterationCount int
	Notes          []string
	RawNotes       []string
}

// SupervisorResult is the aggregated outcome of a supervisor run.
type SupervisorResult struct {
	ResearchBrief string           `json:"research_brief"`
	Notes         []string         `json:"notes"`
	RawNotes      []string         `json:"raw_notes"`
	Iterations    int              `json:"iterations"`
	StopReason    StopReason       `json:"stop_reason"`
	FailedTopics  []string         `json:"failed_topics,omitempty"`
	Messages      []models.Message `json:"messages"`
}

// DeepResearchInput is the input to DeepResearchWorkflow
type DeepResearchInput struct {
	Messages []models.Message `json:"messages"`
	Config   SupervisorConfig `json:"config"`
}

// DeepResearchResult is the outcome of a full pipeline run. Supervisor is nil
// when the scope controller asked a clarification question.
type DeepResearchResult struct {
	Scope      ScopeResult       `json:"scope"`
	Supervisor *SupervisorResult `json:"supervisor,omitempty"`
}
