package registry

import (
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

// DeepResearchRegistry registers the research workflows and activities under
// the names in the constants package, so clients and child workflows can
// address them by string.
type DeepResearchRegistry struct {
	acts   *activities.Activities
	logger *zap.Logger
}

var _ Registry = (*DeepResearchRegistry)(nil)

// NewDeepResearchRegistry creates a new registry instance
func NewDeepResearchRegistry(acts *activities.Activities, logger *zap.Logger) *DeepResearchRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeepResearchRegistry{acts: acts, logger: logger}
}

// RegisterWorkflows registers the pipeline and its child workflows
func (r *DeepResearchRegistry) RegisterWorkflows(reg Registrar) error {
	reg.RegisterWorkflowWithOptions(workflows.ScopeWorkflow, workflow.RegisterOptions{Name: constants.ScopeWorkflow})
	reg.RegisterWorkflowWithOptions(workflows.ResearcherWorkflow, workflow.RegisterOptions{Name: constants.ResearcherWorkflow})
	reg.RegisterWorkflowWithOptions(workflows.SupervisorWorkflow, workflow.RegisterOptions{Name: constants.SupervisorWorkflow})
	reg.RegisterWorkflowWithOptions(workflows.DeepResearchWorkflow, workflow.RegisterOptions{Name: constants.DeepResearchWorkflow})
	r.logger.Info("Registered research workflows")
	return nil
}

// RegisterActivities registers the model and tool activities
func (r *DeepResearchRegistry) RegisterActivities(reg Registrar) error {
	if r.acts == nil {
		return errors.New("registry: activities are required")
	}

	// Scope controller
	reg.RegisterActivityWithOptions(r.acts.ClarifyWithUser, activity.RegisterOptions{Name: constants.ClarifyWithUserActivity})
	reg.RegisterActivityWithOptions(r.acts.WriteResearchBrief, activity.RegisterOptions{Name: constants.WriteResearchBriefActivity})

	// Researcher loop
	reg.RegisterActivityWithOptions(r.acts.ResearcherDecide, activity.RegisterOptions{Name: constants.ResearcherDecideActivity})
	reg.RegisterActivityWithOptions(r.acts.ExecuteTool, activity.RegisterOptions{Name: constants.ExecuteToolActivity})
	reg.RegisterActivityWithOptions(r.acts.CompressResearch, activity.RegisterOptions{Name: constants.CompressResearchActivity})

	// Supervisor loop
	reg.RegisterActivityWithOptions(r.acts.SupervisorDecide, activity.RegisterOptions{Name: constants.SupervisorDecideActivity})

	r.logger.Info("Registered research activities")
	return nil
}
