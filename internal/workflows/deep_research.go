package workflows

import (
	"go.temporal.io/sdk/workflow"
)

// DeepResearchWorkflow chains the scope controller and the supervisor as
// child workflows. A clarification question ends the run early with no
// supervisor result.
func DeepResearchWorkflow(ctx workflow.Context, in DeepResearchInput) (DeepResearchResult, error) {
	logger := workflow.GetLogger(ctx)
	parentID := workflow.GetInfo(ctx).WorkflowExecution.ID

	scopeCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:          parentID + "-scope",
		WaitForCancellation: true,
	})
	var scope ScopeResult
	err := workflow.ExecuteChildWorkflow(scopeCtx, ScopeWorkflow, ScopeInput{
		Messages:     in.Messages,
		ModelTimeout: in.Config.ModelTimeout,
	}).Get(ctx, &scope)
	if err != nil {
		if isCancelled(ctx, err) {
			return DeepResearchResult{}, cancellation(ctx, err)
		}
		return DeepResearchResult{}, err
	}

	result := DeepResearchResult{Scope: scope}
	if scope.NeedsClarification {
		logger.Info("Run ended with a clarification question")
		return result, nil
	}

	supervisorCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:          parentID + "-supervisor",
		WaitForCancellation: true,
	})
	var supervisor SupervisorResult
	err = workflow.ExecuteChildWorkflow(supervisorCtx, SupervisorWorkflow, SupervisorInput{
		ResearchBrief: scope.ResearchBrief,
		Config:        in.Config,
	}).Get(ctx, &supervisor)
	if err != nil {
		if isCancelled(ctx, err) {
			return DeepResearchResult{}, cancellation(ctx, err)
		}
		return DeepResearchResult{}, err
	}

	result.Supervisor = &supervisor
	return result, nil
}
