package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
)

// ClarifyWithUser decides whether the conversation is specific enough to
// research or whether the user must answer a question first.
func (a *Activities) ClarifyWithUser(ctx context.Context, in ClarifyInput) (ClarifyResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Clarifying research scope", "messages", len(in.Messages))

	text, err := a.prompts.Render(prompts.ClarifyWithUser, prompts.Data{
		Date:     in.Date,
		Messages: models.BufferString(in.Messages),
	})
	if err != nil {
		return ClarifyResult{}, toApplicationError(models.ErrTypeScopeController, err)
	}

	out, err := llm.Call[ClarifyWithUser](ctx, a.scopeModel, []models.Message{models.NewUserMessage(text)})
	if err != nil {
		logger.Error("Clarification call failed", "error", err)
		return ClarifyResult{}, toApplicationError(models.ErrTypeScopeController, err)
	}

	return ClarifyResult{
		NeedClarification: out.NeedClarification,
		Question:          out.Question,
		Verification:      out.Verification,
	}, nil
}

// WriteResearchBrief turns the conversation into a research brief.
func (a *Activities) WriteResearchBrief(ctx context.Context, in WriteBriefInput) (WriteBriefResult, error) {
	logger := activity.GetLogger(ctx)

	text, err := a.prompts.Render(prompts.WriteResearchBrief, prompts.Data{
		Date:     in.Date,
		Messages: models.BufferString(in.Messages),
	})
	if err != nil {
		return WriteBriefResult{}, toApplicationError(models.ErrTypeScopeController, err)
	}

	out, err := llm.Call[ResearchQuestion](ctx, a.scopeModel, []models.Message{models.NewUserMessage(text)})
	if err != nil {
		logger.Error("Research brief call failed", "error", err)
		return WriteBriefResult{}, toApplicationError(models.ErrTypeScopeController, err)
	}

	logger.Info("Research brief written", "length", len(out.ResearchBrief))
	return WriteBriefResult{ResearchBrief: out.ResearchBrief}, nil
}
