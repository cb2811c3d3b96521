package constants

// Activity names used for workflow registration and execution.
// Using constants eliminates magic strings and ensures consistency.
const (
	// Scope Activities
	ClarifyWithUserActivity    = "ClarifyWithUser"
	WriteResearchBriefActivity = "WriteResearchBrief"

	// Researcher Activities
	ResearcherDecideActivity = "ResearcherDecide"
	ExecuteToolActivity      = "ExecuteTool"
	CompressResearchActivity = "CompressResearch"

	// Supervisor Activities
	SupervisorDecideActivity = "SupervisorDecide"
)

// Workflow names.
const (
	ScopeWorkflow        = "ScopeWorkflow"
	ResearcherWorkflow   = "ResearcherWorkflow"
	SupervisorWorkflow   = "SupervisorWorkflow"
	DeepResearchWorkflow = "DeepResearchWorkflow"
)

// TaskQueue is the default Temporal task queue served by the worker.
const TaskQueue = "deepresearch-tasks"
