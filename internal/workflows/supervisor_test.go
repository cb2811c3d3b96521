package workflows

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

func topicIs(topic string) interface{} {
	return mock.MatchedBy(func(in activities.DecideInput) bool { return topicOf(in.Messages) == topic })
}

func runSupervisor(t *testing.T, env *testsuite.TestWorkflowEnvironment, cfg SupervisorConfig) SupervisorResult {
	t.Helper()
	env.ExecuteWorkflow(SupervisorWorkflow, SupervisorInput{ResearchBrief: "Compare A and B", Config: cfg})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result SupervisorResult
	require.NoError(t, env.GetWorkflowResult(&result))
	return result
}

// Notes follow call order even when the researchers finish in reverse.
func TestSupervisorNotesFollowCallOrder(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(
		models.NewAssistantMessage("split", conductResearch("c1", "A"), conductResearch("c2", "B"), conductResearch("c3", "C")),
		models.NewAssistantMessage("", researchComplete("c4")),
	)
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, topicIs("A")).Return(finishImmediately).After(3 * time.Second)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, topicIs("B")).Return(finishImmediately).After(2 * time.Second)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, topicIs("C")).Return(finishImmediately).After(1 * time.Second)

	var mu sync.Mutex
	var finished []string
	env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in activities.CompressInput) (activities.CompressResult, error) {
			mu.Lock()
			finished = append(finished, in.Topic)
			mu.Unlock()
			return summarizeTopic(ctx, in)
		})

	result := runSupervisor(t, env, SupervisorConfig{MaxConcurrentResearchers: 3, MaxIterations: 5})

	assert.Equal(t, []string{"C", "B", "A"}, finished)
	assert.Equal(t, []string{"summary: A", "summary: B", "summary: C"}, result.Notes)
	assert.Equal(t, StopResearchComplete, result.StopReason)
	assert.Equal(t, 2, result.Iterations)
	assert.Len(t, result.RawNotes, 3)
	assert.Equal(t, "findings on A", result.RawNotes[0])

	// brief, decision, 3 tool messages, decision
	require.Len(t, result.Messages, 6)
	for i, id := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, id, result.Messages[2+i].ToolCallID)
	}
}

func TestSupervisorTwoTopics(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(
		models.NewAssistantMessage("", conductResearch("c1", "A"), conductResearch("c2", "B")),
		models.NewAssistantMessage("", researchComplete("c3")),
	)
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, topicIs("A")).Return(finishImmediately).After(time.Minute)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(finishImmediately)
	env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(summarizeTopic)

	result := runSupervisor(t, env, DefaultSupervisorConfig())

	assert.Equal(t, []string{"summary: A", "summary: B"}, result.Notes)
	assert.Empty(t, result.FailedTopics)
	assert.Equal(t, "Compare A and B", result.ResearchBrief)

	require.Equal(t, 2, script.calls())
	first := script.inputs[0]
	assert.Equal(t, DefaultMaxConcurrentResearchers, first.MaxConcurrentResearchers)
	assert.Equal(t, DefaultMaxIterations, first.MaxIterations)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, "Compare A and B", first.Messages[0].Content)
}

func TestSupervisorZeroIterationsMakesNoModelCall(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(models.NewAssistantMessage("", conductResearch("c1", "A")))
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)

	result := runSupervisor(t, env, SupervisorConfig{MaxIterations: 0})

	assert.Equal(t, 0, script.calls())
	assert.Equal(t, StopIterationCap, result.StopReason)
	assert.Equal(t, 0, result.Iterations)
	assert.NotNil(t, result.Notes)
	assert.Empty(t, result.Notes)
}

// With a cap of k the model is asked at most k times; the last decision is
// recorded but not dispatched.
func TestSupervisorIterationCap(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(models.NewAssistantMessage("", conductResearch("c1", "A")))
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	var mu sync.Mutex
	researchers := 0
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in activities.DecideInput) (activities.DecideResult, error) {
			mu.Lock()
			researchers++
			mu.Unlock()
			return finishImmediately(ctx, in)
		})
	env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(summarizeTopic)

	result := runSupervisor(t, env, SupervisorConfig{MaxIterations: 3})

	assert.Equal(t, 3, script.calls())
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, StopIterationCap, result.StopReason)
	assert.Equal(t, 2, researchers)
	assert.Len(t, result.Notes, 2)
	last := result.Messages[len(result.Messages)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.True(t, last.HasToolCalls())
}

func TestSupervisorStopsWithoutToolCalls(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(models.NewAssistantMessage("nothing to research"))
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)

	result := runSupervisor(t, env, DefaultSupervisorConfig())

	assert.Equal(t, StopNoToolCalls, result.StopReason)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, result.Notes)
}

// ResearchComplete wins even when it shares a decision with research calls.
func TestSupervisorResearchCompleteStopsBeforeDispatch(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(models.NewAssistantMessage("", conductResearch("c1", "A"), researchComplete("c2")))
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	researchers := 0
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in activities.DecideInput) (activities.DecideResult, error) {
			researchers++
			return finishImmediately(ctx, in)
		})

	result := runSupervisor(t, env, DefaultSupervisorConfig())

	assert.Equal(t, StopResearchComplete, result.StopReason)
	assert.Equal(t, 0, researchers)
	assert.Empty(t, result.Notes)
}

func TestSupervisorNonResearchCalls(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(
		models.NewAssistantMessage("",
			think("c1", "cover both sides"),
			models.ToolCall{ID: "c2", Name: "web_search"},
			models.ToolCall{ID: "c3", Name: "ConductResearch"},
			conductResearch("c4", "A"),
		),
		models.NewAssistantMessage("", researchComplete("c5")),
	)
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(finishImmediately)
	env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(summarizeTopic)

	result := runSupervisor(t, env, DefaultSupervisorConfig())

	toolMessages := models.FilterMessages(result.Messages, models.RoleTool)
	require.Len(t, toolMessages, 4)
	assert.Equal(t, "Reflection recorded: cover both sides", toolMessages[0].Content)
	assert.Contains(t, toolMessages[1].Content, "Error: ")
	assert.Contains(t, toolMessages[1].Content, "web_search")
	assert.Equal(t, "Error: ConductResearch call is missing research_topic", toolMessages[2].Content)
	assert.Equal(t, "summary: A", toolMessages[3].Content)
	for i, id := range []string{"c1", "c2", "c3", "c4"} {
		assert.Equal(t, id, toolMessages[i].ToolCallID)
	}

	assert.Equal(t, []string{"Error: ConductResearch call is missing research_topic", "summary: A"}, result.Notes)
	assert.Len(t, result.RawNotes, 1)
}

// Beyond the concurrency limit researchers queue for a permit.
func TestSupervisorConcurrencyLimit(t *testing.T) {
	tests := []struct {
		name         string
		limit        int
		wantDistinct int
	}{
		{"one at a time", 1, 3},
		{"all at once", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()

			script := newSupervisorScript(
				models.NewAssistantMessage("", conductResearch("c1", "A"), conductResearch("c2", "B"), conductResearch("c3", "C")),
				models.NewAssistantMessage("", researchComplete("c4")),
			)
			env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)

			var mu sync.Mutex
			var stamps []time.Time
			env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(
				func(ctx context.Context, in activities.DecideInput) (activities.DecideResult, error) {
					mu.Lock()
					stamps = append(stamps, env.Now())
					mu.Unlock()
					return finishImmediately(ctx, in)
				}).After(time.Minute)
			env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(summarizeTopic)

			result := runSupervisor(t, env, SupervisorConfig{MaxConcurrentResearchers: tt.limit, MaxIterations: 4})
			assert.Len(t, result.Notes, 3)

			require.Len(t, stamps, 3)
			sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
			distinct := 1
			for i := 1; i < len(stamps); i++ {
				if stamps[i].Sub(stamps[i-1]) >= time.Minute {
					distinct++
				}
			}
			assert.Equal(t, tt.wantDistinct, distinct)
		})
	}
}

func failTopicB(env *testsuite.TestWorkflowEnvironment) {
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, topicIs("B")).Return(
		activities.DecideResult{},
		temporal.NewNonRetryableApplicationError("provider returned 502", models.ErrTypeModelBackend, nil))
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(finishImmediately)
	env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(summarizeTopic)
}

func TestSupervisorIsolatesFailedResearcher(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(
		models.NewAssistantMessage("", conductResearch("c1", "A"), conductResearch("c2", "B")),
		models.NewAssistantMessage("", researchComplete("c3")),
	)
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	failTopicB(env)

	result := runSupervisor(t, env, SupervisorConfig{MaxIterations: 3, FailurePolicy: FailureIsolate})

	require.Len(t, result.Notes, 2)
	assert.Equal(t, "summary: A", result.Notes[0])
	assert.Contains(t, result.Notes[1], `Error: research on topic "B" failed`)
	assert.Equal(t, []string{"B"}, result.FailedTopics)
	assert.Len(t, result.RawNotes, 1)
	assert.Equal(t, StopResearchComplete, result.StopReason)
}

func TestSupervisorAbortsOnFailedResearcher(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(
		models.NewAssistantMessage("", conductResearch("c1", "A"), conductResearch("c2", "B")),
		models.NewAssistantMessage("", researchComplete("c3")),
	)
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	failTopicB(env)

	env.ExecuteWorkflow(SupervisorWorkflow, SupervisorInput{
		ResearchBrief: "Compare A and B",
		Config:        SupervisorConfig{MaxIterations: 3, FailurePolicy: FailureAbort},
	})

	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrTypeAggregationFailure, appErr.Type())
	assert.Contains(t, appErr.Error(), `"B"`)
	assert.Equal(t, 1, script.calls())
}

func TestSupervisorRejectsInvalidConfig(t *testing.T) {
	env := newTestEnv()

	env.ExecuteWorkflow(SupervisorWorkflow, SupervisorInput{
		ResearchBrief: "brief",
		Config:        SupervisorConfig{MaxConcurrentResearchers: -1, MaxIterations: 2},
	})

	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Equal(t, models.ErrTypeConfiguration, errorType(err))
}

func TestSupervisorCancellation(t *testing.T) {
	env := newTestEnv()

	script := newSupervisorScript(models.NewAssistantMessage("", conductResearch("c1", "A"), conductResearch("c2", "B")))
	env.OnActivity(constants.SupervisorDecideActivity, mock.Anything, mock.Anything).Return(script.decide)
	env.OnActivity(constants.ResearcherDecideActivity, mock.Anything, mock.Anything).Return(finishImmediately).After(time.Hour)
	compressions := 0
	env.OnActivity(constants.CompressResearchActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in activities.CompressInput) (activities.CompressResult, error) {
			compressions++
			return summarizeTopic(ctx, in)
		})

	env.RegisterDelayedCallback(env.CancelWorkflow, time.Minute)
	env.ExecuteWorkflow(SupervisorWorkflow, SupervisorInput{ResearchBrief: "brief", Config: DefaultSupervisorConfig()})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.True(t, temporal.IsCanceledError(err), "got %v", err)
	assert.Equal(t, 0, compressions)
}
