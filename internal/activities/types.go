package activities

import "github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"

// ClarifyInput is the input for the clarification decision
type ClarifyInput struct {
	Messages []models.Message `json:"messages"`
	Date     string           `json:"date"`
}

// ClarifyResult is the routing decision of the scope controller
type ClarifyResult struct {
	NeedClarification bool   `json:"need_clarification"`
	Question          string `json:"question,omitempty"`
	Verification      string `json:"verification,omitempty"`
}

// WriteBriefInput is the input for research brief generation
type WriteBriefInput struct {
	Messages []models.Message `json:"messages"`
	Date     string           `json:"date"`
}

// WriteBriefResult carries the generated research brief
type WriteBriefResult struct {
	ResearchBrief string `json:"research_brief"`
}

// DecideInput is the input for a researcher decision
type DecideInput struct {
	Messages []models.Message `json:"messages"`
	Date     string           `json:"date"`
}

// SupervisorDecideInput is the input for a supervisor decision
type SupervisorDecideInput struct {
	Messages                 []models.Message `json:"messages"`
	Date                     string           `json:"date"`
	MaxConcurrentResearchers int              `json:"max_concurrent_researchers"`
	MaxIterations            int              `json:"max_iterations"`
}

// DecideResult is an assistant message whose tool call ids are non-empty and
// unique within the message.
type DecideResult struct {
	Message models.Message `json:"message"`
	// Reassigned counts tool call ids replaced because they were empty or duplicated
	Reassigned int `json:"reassigned,omitempty"`
}

// ExecuteToolInput is the input for a single tool invocation
type ExecuteToolInput struct {
	Call models.ToolCall `json:"call"`
}

// CompressInput is the input for research compression
type CompressInput struct {
	Topic    string           `json:"topic"`
	Messages []models.Message `json:"messages"`
	Date     string           `json:"date"`
}

// CompressResult carries the compressed findings
type CompressResult struct {
	Summary string `json:"summary"`
}

// Structured model outputs. Type names double as schema names.

// ClarifyWithUser is the model's clarification decision.
type ClarifyWithUser struct {
	NeedClarification bool   `json:"need_clarification" jsonschema_description:"Whether the user needs to be asked a clarifying question."`
	Question          string `json:"question" jsonschema_description:"A question to ask the user to clarify the report scope."`
	Verification      string `json:"verification" jsonschema_description:"Verify message that we will start research after the user has provided the necessary information."`
}

// ResearchQuestion is the model's research brief.
type ResearchQuestion struct {
	ResearchBrief string `json:"research_brief" jsonschema_description:"A research question that will be used to guide the research."`
}

// ModelToolCall is a tool call as emitted in a structured decision.
type ModelToolCall struct {
	ID   string                 `json:"id" jsonschema_description:"Identifier for this call, unique within the decision."`
	Name string                 `json:"name" jsonschema_description:"Name of the tool to call."`
	Args map[string]interface{} `json:"args" jsonschema_description:"Arguments for the tool."`
}

// ResearcherOutput is a researcher's decision.
type ResearcherOutput struct {
	ToolCalls       []ModelToolCall `json:"tool_calls" jsonschema_description:"Tool calls to execute next. Empty when research is finished."`
	ResearchMessage string          `json:"research_message" jsonschema_description:"What the researcher is doing or has found."`
}

// SupervisorOutput is a supervisor's decision.
type SupervisorOutput struct {
	ToolCalls []ModelToolCall `json:"tool_calls" jsonschema_description:"ConductResearch, ResearchComplete or think_tool calls."`
	Message   string          `json:"message" jsonschema_description:"Reasoning behind the decision."`
}

// CompressedResearch is the compressed findings of one researcher.
type CompressedResearch struct {
	Summary string `json:"summary" jsonschema_description:"Cleaned, comprehensive findings with citations."`
}
