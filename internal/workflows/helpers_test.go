package workflows

import (
	"context"
	"sync"

	"go.temporal.io/sdk/testsuite"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
)

// newTestEnv returns a workflow environment with every activity registered
// under its production name (so OnActivity can mock by constant) and every
// child workflow registered.
func newTestEnv() *testsuite.TestWorkflowEnvironment {
	s := &testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(&activities.Activities{})
	env.RegisterWorkflow(ScopeWorkflow)
	env.RegisterWorkflow(ResearcherWorkflow)
	env.RegisterWorkflow(SupervisorWorkflow)
	return env
}

func conductResearch(id, topic string) models.ToolCall {
	return models.ToolCall{
		ID:   id,
		Name: string(tools.ConductResearch),
		Args: map[string]interface{}{tools.ResearchTopicArg: topic},
	}
}

func researchComplete(id string) models.ToolCall {
	return models.ToolCall{ID: id, Name: string(tools.ResearchComplete)}
}

func think(id, reflection string) models.ToolCall {
	return models.ToolCall{
		ID:   id,
		Name: string(tools.Think),
		Args: map[string]interface{}{tools.ReflectionArg: reflection},
	}
}

// supervisorScript replays assistant decisions in order and repeats the last
// one once the script runs out.
type supervisorScript struct {
	mu     sync.Mutex
	script []models.Message
	inputs []activities.SupervisorDecideInput
}

func newSupervisorScript(script ...models.Message) *supervisorScript {
	return &supervisorScript{script: script}
}

func (s *supervisorScript) decide(_ context.Context, in activities.SupervisorDecideInput) (activities.DecideResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.inputs)
	s.inputs = append(s.inputs, in)
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return activities.DecideResult{Message: s.script[i]}, nil
}

func (s *supervisorScript) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

// topicOf is the topic a researcher thread was seeded with.
func topicOf(messages []models.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[0].Content
}

// finishImmediately is a researcher decision that ends the loop at once.
func finishImmediately(_ context.Context, in activities.DecideInput) (activities.DecideResult, error) {
	return activities.DecideResult{Message: models.NewAssistantMessage("findings on " + topicOf(in.Messages))}, nil
}

func summarizeTopic(_ context.Context, in activities.CompressInput) (activities.CompressResult, error) {
	return activities.CompressResult{Summary: "summary: " + in.Topic}, nil
}
