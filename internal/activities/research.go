package activities

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.temporal.io/sdk/activity"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tracing"
)

// ResearcherDecide asks the model for the researcher's next tool calls.
func (a *Activities) ResearcherDecide(ctx context.Context, in DecideInput) (DecideResult, error) {
	system, err := a.prompts.Render(prompts.ResearchAgent, prompts.Data{
		Date:      in.Date,
		ToolsInfo: tools.FormatInstructions(a.tools.Describe()),
	})
	if err != nil {
		return DecideResult{}, toApplicationError(models.ErrTypeModelBackend, err)
	}

	thread := models.Append([]models.Message{models.NewSystemMessage(system)}, in.Messages...)
	out, err := llm.Call[ResearcherOutput](ctx, a.researchModel, thread)
	if err != nil {
		activity.GetLogger(ctx).Error("Researcher decision failed", "error", err)
		return DecideResult{}, toApplicationError("", err)
	}

	calls, reassigned := normalizeToolCalls("researcher", out.ToolCalls)
	activity.GetLogger(ctx).Debug("Researcher decided", "tool_calls", len(calls), "reassigned_ids", reassigned)
	return DecideResult{
		Message:    models.NewAssistantMessage(out.ResearchMessage, calls...),
		Reassigned: reassigned,
	}, nil
}

// ExecuteTool runs one tool call against the registry. Tool failures are
// reported as error content in the result so the researcher can see them;
// only cancellation fails the activity.
func (a *Activities) ExecuteTool(ctx context.Context, in ExecuteToolInput) (models.ToolResult, error) {
	call := in.Call
	ctx, span := tracing.StartSpan(ctx, "tools.execute",
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	)
	start := time.Now()

	content, err := a.tools.Invoke(ctx, call.Name, call.Args)
	metrics.ToolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	tracing.End(span, err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ToolResult{}, ctxErr
		}
		metrics.ToolInvocations.WithLabelValues(call.Name, "error").Inc()
		activity.GetLogger(ctx).Warn("Tool call failed",
			"tool", call.Name,
			"call_id", call.ID,
			"error_type", models.ErrorType(err),
			"error", err,
		)
		content = ToolErrorContent(err)
	} else {
		metrics.ToolInvocations.WithLabelValues(call.Name, "success").Inc()
	}

	return models.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: content}, nil
}

// ToolErrorContent is the tool message content recorded for a failed call.
func ToolErrorContent(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// CompressResearch condenses a researcher's thread into findings.
func (a *Activities) CompressResearch(ctx context.Context, in CompressInput) (CompressResult, error) {
	system, err := a.prompts.Render(prompts.CompressResearchSystem, prompts.Data{Date: in.Date})
	if err != nil {
		return CompressResult{}, toApplicationError(models.ErrTypeModelBackend, err)
	}
	human, err := a.prompts.Render(prompts.CompressResearchHuman, prompts.Data{Date: in.Date, Topic: in.Topic})
	if err != nil {
		return CompressResult{}, toApplicationError(models.ErrTypeModelBackend, err)
	}

	thread := models.Append([]models.Message{models.NewSystemMessage(system)}, in.Messages...)
	thread = models.Append(thread, models.NewUserMessage(human))

	out, err := llm.Call[CompressedResearch](ctx, a.compressModel, thread)
	if err != nil {
		activity.GetLogger(ctx).Error("Compression failed", "error", err)
		return CompressResult{}, toApplicationError("", err)
	}
	return CompressResult{Summary: out.Summary}, nil
}
