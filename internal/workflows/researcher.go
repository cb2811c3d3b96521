package workflows

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/workflow"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	wfmetrics "github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows/opts"
)

// ResearcherWorkflow researches one topic: decide, run the requested tools,
// repeat until the model stops asking for tools or the cap is hit, then
// compress the thread into findings.
func ResearcherWorkflow(ctx workflow.Context, in ResearcherInput) (ResearcherResult, error) {
	logger := workflow.GetLogger(ctx)
	if strings.TrimSpace(in.Topic) == "" {
		return ResearcherResult{}, withErrorType(models.ErrTypeConfiguration, fmt.Errorf("researcher requires a topic"))
	}
	if in.MaxIterations <= 0 {
		in.MaxIterations = DefaultMaxResearcherIterations
	}

	modelCtx := opts.WithModelOptions(ctx, in.ModelTimeout)
	toolCtx := opts.WithToolOptions(ctx, in.ToolTimeout)

	state := ResearcherState{
		Topic:    in.Topic,
		Messages: []models.Message{models.NewUserMessage(in.Topic)},
	}
	truncated := false

	for {
		var decision activities.DecideResult
		err := workflow.ExecuteActivity(modelCtx, constants.ResearcherDecideActivity, activities.DecideInput{
			Messages: state.Messages,
			Date:     in.Date,
		}).Get(ctx, &decision)
		if err != nil {
			if isCancelled(ctx, err) {
				return ResearcherResult{}, cancellation(ctx, err)
			}
			return ResearcherResult{}, err
		}
		state.Iterations++
		state.Messages = models.Append(state.Messages, decision.Message)

		if !decision.Message.HasToolCalls() {
			break
		}

		results, err := executeToolCalls(toolCtx, decision.Message.ToolCalls)
		if err != nil {
			return ResearcherResult{}, err
		}
		for _, r := range results {
			state.Messages = models.Append(state.Messages, r.Message())
		}

		if state.Iterations >= in.MaxIterations {
			truncated = true
			logger.Warn("Researcher hit iteration cap, compressing", "iterations", state.Iterations)
			break
		}
	}

	var compressed activities.CompressResult
	err := workflow.ExecuteActivity(modelCtx, constants.CompressResearchActivity, activities.CompressInput{
		Topic:    state.Topic,
		Messages: state.Messages,
		Date:     in.Date,
	}).Get(ctx, &compressed)
	if err != nil {
		if isCancelled(ctx, err) {
			return ResearcherResult{}, cancellation(ctx, err)
		}
		return ResearcherResult{}, err
	}
	state.CompressedSummary = compressed.Summary
	state.RawNotes = []string{strings.Join(models.Contents(models.FilterMessages(state.Messages, models.RoleTool, models.RoleAssistant)), "\n")}

	wfmetrics.RecordResearcherIterations(ctx, state.Iterations)
	logger.Info("Researcher finished", "iterations", state.Iterations, "truncated", truncated)
	return ResearcherResult{
		Topic:      state.Topic,
		Summary:    state.CompressedSummary,
		RawNotes:   state.RawNotes,
		Iterations: state.Iterations,
		Truncated:  truncated,
	}, nil
}

// executeToolCalls starts one activity per call, all at once, and collects
// results in call order. A failed activity becomes error content for its call;
// only cancellation is returned as an error.
func executeToolCalls(ctx workflow.Context, calls []models.ToolCall) ([]models.ToolResult, error) {
	futures := make([]workflow.Future, len(calls))
	for i, call := range calls {
		futures[i] = workflow.ExecuteActivity(ctx, constants.ExecuteToolActivity, activities.ExecuteToolInput{Call: call})
	}

	results := make([]models.ToolResult, len(calls))
	for i, f := range futures {
		var r models.ToolResult
		if err := f.Get(ctx, &r); err != nil {
			if isCancelled(ctx, err) {
				return nil, cancellation(ctx, err)
			}
			workflow.GetLogger(ctx).Warn("Tool activity failed", "tool", calls[i].Name, "error", err)
			r.Content = activities.ToolErrorContent(err)
		}
		r.ToolCallID = calls[i].ID
		r.Name = calls[i].Name
		results[i] = r
	}
	return results, nil
}
