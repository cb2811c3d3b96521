package activities

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
)

// Dependencies are the shared, read-only resources activities call into.
type Dependencies struct {
	// ScopeModel backs clarification and brief writing.
	ScopeModel llm.Backend
	// ResearchModel backs researcher and supervisor decisions.
	ResearchModel llm.Backend
	// CompressModel backs compression; ResearchModel is used when nil.
	CompressModel llm.Backend
	Tools         *tools.Registry
	Prompts       *prompts.Catalogue
}

// Activities struct holds dependencies for activities
type Activities struct {
	scopeModel    llm.Backend
	researchModel llm.Backend
	compressModel llm.Backend
	tools         *tools.Registry
	prompts       *prompts.Catalogue
	logger        *zap.Logger
}

// NewActivities creates a new activities instance with dependencies
func NewActivities(deps Dependencies, logger *zap.Logger) (*Activities, error) {
	if deps.ScopeModel == nil || deps.ResearchModel == nil {
		return nil, errors.New("activities: scope and research models are required")
	}
	if deps.Tools == nil {
		deps.Tools = tools.NewRegistry()
	}
	if deps.Prompts == nil {
		c, err := prompts.Default()
		if err != nil {
			return nil, err
		}
		deps.Prompts = c
	}
	if deps.CompressModel == nil {
		deps.CompressModel = deps.ResearchModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{
		scopeModel:    deps.ScopeModel,
		researchModel: deps.ResearchModel,
		compressModel: deps.CompressModel,
		tools:         deps.Tools,
		prompts:       deps.Prompts,
		logger:        logger,
	}, nil
}

// toApplicationError carries err across the activity boundary under errType,
// or under its own taxonomy entry when errType is empty. Model calls are
// never retried by Temporal.
func toApplicationError(errType string, err error) error {
	if errType == "" {
		errType = models.ErrorType(err)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}

// normalizeToolCalls converts model-emitted calls, assigning a fresh id to
// any call whose id is empty or already used in the same decision.
func normalizeToolCalls(agent string, in []ModelToolCall) ([]models.ToolCall, int) {
	if len(in) == 0 {
		return nil, 0
	}
	out := make([]models.ToolCall, 0, len(in))
	seen := make(map[string]bool, len(in))
	reassigned := 0
	for _, c := range in {
		id := c.ID
		if id == "" || seen[id] {
			id = fmt.Sprintf("call_%s", uuid.NewString())
			reassigned++
		}
		seen[id] = true
		args := c.Args
		if args == nil {
			args = map[string]interface{}{}
		}
		out = append(out, models.ToolCall{ID: id, Name: c.Name, Args: args})
		metrics.ToolCallsRequested.WithLabelValues(agent, c.Name).Inc()
	}
	if reassigned > 0 {
		metrics.ToolCallIDsReassigned.WithLabelValues(agent).Add(float64(reassigned))
	}
	return out, reassigned
}
