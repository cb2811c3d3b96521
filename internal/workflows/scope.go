package workflows

import (
	"errors"

	"go.temporal.io/sdk/workflow"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
	wfmetrics "github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows/opts"
)

// ScopeWorkflow decides whether a request needs clarification and, when it
// does not, writes the research brief.
//
// AwaitingClarity -> NeedsClarification (ends with a question)
// AwaitingClarity -> BriefReady (ends with a brief)
func ScopeWorkflow(ctx workflow.Context, in ScopeInput) (ScopeResult, error) {
	logger := workflow.GetLogger(ctx)
	if len(in.Messages) == 0 {
		return ScopeResult{}, withErrorType(models.ErrTypeScopeController, errors.New("scope requires at least one message"))
	}

	ctx = opts.WithModelOptions(ctx, in.ModelTimeout)
	date := prompts.FormatDate(workflow.Now(ctx))
	state := ScopeState{Conversation: models.Append(nil, in.Messages...)}

	var clarify activities.ClarifyResult
	err := workflow.ExecuteActivity(ctx, constants.ClarifyWithUserActivity, activities.ClarifyInput{
		Messages: state.Conversation,
		Date:     date,
	}).Get(ctx, &clarify)
	if err != nil {
		if isCancelled(ctx, err) {
			return ScopeResult{}, cancellation(ctx, err)
		}
		logger.Error("Clarification failed", "error", err)
		return ScopeResult{}, withErrorType(models.ErrTypeScopeController, err)
	}

	if clarify.NeedClarification {
		state.Conversation = models.Append(state.Conversation, models.NewAssistantMessage(clarify.Question))
		wfmetrics.RecordScopeDecision(ctx, "clarify")
		logger.Info("Scope needs clarification")
		return ScopeResult{
			NeedsClarification: true,
			Question:           clarify.Question,
			Messages:           state.Conversation,
		}, nil
	}
	state.Conversation = models.Append(state.Conversation, models.NewAssistantMessage(clarify.Verification))

	var brief activities.WriteBriefResult
	err = workflow.ExecuteActivity(ctx, constants.WriteResearchBriefActivity, activities.WriteBriefInput{
		Messages: state.Conversation,
		Date:     date,
	}).Get(ctx, &brief)
	if err != nil {
		if isCancelled(ctx, err) {
			return ScopeResult{}, cancellation(ctx, err)
		}
		logger.Error("Research brief failed", "error", err)
		return ScopeResult{}, withErrorType(models.ErrTypeScopeController, err)
	}
	state.ResearchBrief = brief.ResearchBrief
	wfmetrics.RecordScopeDecision(ctx, "brief")

	logger.Info("Research brief ready", "length", len(state.ResearchBrief))
	return ScopeResult{
		ResearchBrief: state.ResearchBrief,
		Messages:      state.Conversation,
	}, nil
}
