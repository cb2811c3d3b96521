package tools

import (
	"fmt"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

// SupervisorTool is the closed set of actions a supervisor decision may request.
type SupervisorTool string

const (
	ConductResearch  SupervisorTool = "ConductResearch"
	ResearchComplete SupervisorTool = "ResearchComplete"
	Think            SupervisorTool = "think_tool"
)

// ResearchTopicArg is the ConductResearch argument carrying the topic.
const ResearchTopicArg = "research_topic"

// ReflectionArg is the think_tool argument carrying the reflection text.
const ReflectionArg = "reflection"

var supervisorTools = []Descriptor{
	{
		ID:   0,
		Name: string(ConductResearch),
		Description: "Delegate a research task to a specialized sub-agent. Arguments: " +
			`{"research_topic": string}. The topic should be a single topic described in high detail (at least a paragraph).`,
	},
	{
		ID:          1,
		Name:        string(ResearchComplete),
		Description: "Indicate that the research process is complete. Takes no arguments.",
	},
	{
		ID:   2,
		Name: string(Think),
		Description: "Strategic reflection on research progress and next steps. Arguments: " +
			`{"reflection": string}. Use it after each round of results to decide whether more research is needed.`,
	},
}

// SupervisorDescriptors lists the supervisor tools in a stable order.
func SupervisorDescriptors() []Descriptor {
	out := make([]Descriptor, len(supervisorTools))
	copy(out, supervisorTools)
	return out
}

// ParseSupervisorTool resolves a model-emitted tool name.
func ParseSupervisorTool(name string) (SupervisorTool, error) {
	switch SupervisorTool(name) {
	case ConductResearch, ResearchComplete, Think:
		return SupervisorTool(name), nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownTool, name)
	}
}
