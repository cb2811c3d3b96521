package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
)

// SupervisorDecide asks the model which topics to delegate next, or whether
// research is complete.
func (a *Activities) SupervisorDecide(ctx context.Context, in SupervisorDecideInput) (DecideResult, error) {
	system, err := a.prompts.Render(prompts.LeadResearcher, prompts.Data{
		Date:                       in.Date,
		ToolsInfo:                  tools.FormatInstructions(tools.SupervisorDescriptors()),
		MaxConcurrentResearchUnits: in.MaxConcurrentResearchers,
		MaxResearcherIterations:    in.MaxIterations,
	})
	if err != nil {
		return DecideResult{}, toApplicationError(models.ErrTypeModelBackend, err)
	}

	thread := models.Append([]models.Message{models.NewSystemMessage(system)}, in.Messages...)
	out, err := llm.Call[SupervisorOutput](ctx, a.researchModel, thread)
	if err != nil {
		activity.GetLogger(ctx).Error("Supervisor decision failed", "error", err)
		return DecideResult{}, toApplicationError("", err)
	}

	calls, reassigned := normalizeToolCalls("supervisor", out.ToolCalls)
	activity.GetLogger(ctx).Info("Supervisor decided", "tool_calls", len(calls), "reassigned_ids", reassigned)
	return DecideResult{
		Message:    models.NewAssistantMessage(out.Message, calls...),
		Reassigned: reassigned,
	}, nil
}
