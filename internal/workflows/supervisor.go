package workflows

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
	wfmetrics "github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows/opts"
)

// SupervisorWorkflow runs the lead researcher loop: decide, fan research
// topics out to researcher child workflows under a concurrency bound,
// aggregate their findings in call order, and repeat until research is
// complete, the model stops calling tools, or the iteration cap is reached.
func SupervisorWorkflow(ctx workflow.Context, in SupervisorInput) (SupervisorResult, error) {
	logger := workflow.GetLogger(ctx)

	cfg, err := in.Config.Normalize()
	if err != nil {
		return SupervisorResult{}, withErrorType(models.ErrTypeConfiguration, err)
	}

	modelCtx := opts.WithModelOptions(ctx, cfg.ModelTimeout)
	date := prompts.FormatDate(workflow.Now(ctx))
	sem := workflow.NewSemaphore(ctx, int64(cfg.MaxConcurrentResearchers))

	state := SupervisorState{
		ResearchBrief: in.ResearchBrief,
		Messages:      []models.Message{models.NewUserMessage(in.ResearchBrief)},
	}
	var failedTopics []string
	var stop StopReason

	logger.Info("Supervisor started",
		"max_iterations", cfg.MaxIterations,
		"max_concurrent_researchers", cfg.MaxConcurrentResearchers,
		"failure_policy", string(cfg.FailurePolicy),
	)

	for {
		if state.IterationCount >= cfg.MaxIterations {
			stop = StopIterationCap
			break
		}
		state.IterationCount++

		var decision activities.DecideResult
		err := workflow.ExecuteActivity(modelCtx, constants.SupervisorDecideActivity, activities.SupervisorDecideInput{
			Messages:                 state.Messages,
			Date:                     date,
			MaxConcurrentResearchers: cfg.MaxConcurrentResearchers,
			MaxIterations:            cfg.MaxIterations,
		}).Get(ctx, &decision)
		if err != nil {
			if isCancelled(ctx, err) {
				wfmetrics.RecordSupervisorStop(ctx, string(StopCancelled), state.IterationCount)
				return SupervisorResult{}, cancellation(ctx, err)
			}
			return SupervisorResult{}, err
		}
		state.Messages = models.Append(state.Messages, decision.Message)
		calls := decision.Message.ToolCalls

		if state.IterationCount >= cfg.MaxIterations {
			stop = StopIterationCap
			break
		}
		if len(calls) == 0 {
			stop = StopNoToolCalls
			break
		}
		if requestsCompletion(calls) {
			stop = StopResearchComplete
			break
		}

		outcomes, err := dispatch(ctx, sem, calls, cfg, date, state.IterationCount)
		if err != nil {
			wfmetrics.RecordSupervisorStop(ctx, string(StopCancelled), state.IterationCount)
			return SupervisorResult{}, err
		}

		agg := aggregate(calls, outcomes)
		if agg.firstFailure != nil && cfg.FailurePolicy == FailureAbort {
			logger.Error("Researcher failed, aborting run", "topic", agg.failedTopic, "error", agg.firstFailure)
			return SupervisorResult{}, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("research on topic %q failed: %v", agg.failedTopic, agg.firstFailure),
				models.ErrTypeAggregationFailure,
				agg.firstFailure,
			)
		}

		for _, r := range agg.results {
			state.Messages = models.Append(state.Messages, r.Message())
		}
		state.RawNotes = append(state.RawNotes, agg.rawNotes...)
		failedTopics = append(failedTopics, agg.failedTopics...)
	}

	state.Notes = notesFrom(state.Messages)
	wfmetrics.RecordSupervisorStop(ctx, string(stop), state.IterationCount)
	logger.Info("Supervisor finished",
		"stop_reason", string(stop),
		"iterations", state.IterationCount,
		"notes", len(state.Notes),
		"failed_topics", len(failedTopics),
	)

	return SupervisorResult{
		ResearchBrief: state.ResearchBrief,
		Notes:         state.Notes,
		RawNotes:      state.RawNotes,
		Iterations:    state.IterationCount,
		StopReason:    stop,
		FailedTopics:  failedTopics,
		Messages:      state.Messages,
	}, nil
}

func requestsCompletion(calls []models.ToolCall) bool {
	for _, c := range calls {
		if c.Name == string(tools.ResearchComplete) {
			return true
		}
	}
	return false
}

// dispatch handles one round of supervisor tool calls. Every ConductResearch
// call gets a researcher child workflow; at most cap(sem) run at once and the
// rest wait for a permit. The returned slots line up with calls.
func dispatch(ctx workflow.Context, sem workflow.Semaphore, calls []models.ToolCall, cfg SupervisorConfig, date string, iteration int) ([]callOutcome, error) {
	logger := workflow.GetLogger(ctx)
	outcomes := make([]callOutcome, len(calls))
	wg := workflow.NewWaitGroup(ctx)
	parentID := workflow.GetInfo(ctx).WorkflowExecution.ID

	for i, call := range calls {
		tool, err := tools.ParseSupervisorTool(call.Name)
		if err != nil {
			outcomes[i].content = activities.ToolErrorContent(err)
			continue
		}

		switch tool {
		case tools.Think:
			reflection, _ := call.StringArg(tools.ReflectionArg)
			outcomes[i].content = tools.Reflect(reflection)

		case tools.ConductResearch:
			topic, ok := call.StringArg(tools.ResearchTopicArg)
			if !ok {
				outcomes[i].content = "Error: ConductResearch call is missing research_topic"
				continue
			}

			i := i
			outcomes[i].dispatched = true
			childOpts := workflow.ChildWorkflowOptions{
				WorkflowID:          fmt.Sprintf("%s-researcher-%d-%d", parentID, iteration, i),
				WaitForCancellation: true,
			}
			input := ResearcherInput{
				Topic:         topic,
				MaxIterations: cfg.MaxResearcherIterations,
				Date:          date,
				ModelTimeout:  cfg.ModelTimeout,
				ToolTimeout:   cfg.ToolTimeout,
			}

			wg.Add(1)
			workflow.Go(ctx, func(gctx workflow.Context) {
				defer wg.Done()
				if err := sem.Acquire(gctx, 1); err != nil {
					outcomes[i].err = err
					return
				}
				defer sem.Release(1)

				var res ResearcherResult
				childCtx := workflow.WithChildOptions(gctx, childOpts)
				err := workflow.ExecuteChildWorkflow(childCtx, ResearcherWorkflow, input).Get(gctx, &res)
				outcomes[i].research = res
				outcomes[i].err = err
				switch {
				case err != nil:
					logger.Warn("Researcher failed", "call_id", calls[i].ID, "error", err)
					wfmetrics.RecordResearcher(gctx, "failed")
				case res.Truncated:
					wfmetrics.RecordResearcher(gctx, "truncated")
				default:
					wfmetrics.RecordResearcher(gctx, "completed")
				}
			})
		}
	}

	wg.Wait(ctx)

	for i := range outcomes {
		if outcomes[i].err != nil && isCancelled(ctx, outcomes[i].err) {
			return nil, cancellation(ctx, outcomes[i].err)
		}
	}
	return outcomes, nil
}
