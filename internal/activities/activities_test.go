package activities

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm/llmtest"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
)

type ActivitiesTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env      *testsuite.TestActivityEnvironment
	scope    *llmtest.Backend
	research *llmtest.Backend
	registry *tools.Registry
	acts     *Activities
}

func (s *ActivitiesTestSuite) SetupTest() {
	s.env = s.NewTestActivityEnvironment()
	s.scope = llmtest.New()
	s.research = llmtest.New()
	s.registry = tools.NewRegistry()
	s.Require().NoError(s.registry.Register("echo", "Echo the query", tools.CapabilityFunc(
		func(_ context.Context, args map[string]interface{}) (string, error) {
			q, _ := args["query"].(string)
			return "found: " + q, nil
		})))
	s.Require().NoError(s.registry.Register("broken", "Always fails", tools.CapabilityFunc(
		func(context.Context, map[string]interface{}) (string, error) {
			return "", errors.New("quota exceeded")
		})))

	acts, err := NewActivities(Dependencies{
		ScopeModel:    s.scope,
		ResearchModel: s.research,
		Tools:         s.registry,
	}, zaptest.NewLogger(s.T()))
	s.Require().NoError(err)
	s.acts = acts
	s.env.RegisterActivity(acts)
}

func (s *ActivitiesTestSuite) requireAppErrorType(err error, errType string) {
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr), "expected application error, got %v", err)
	s.Equal(errType, appErr.Type())
	s.True(appErr.NonRetryable())
}

func (s *ActivitiesTestSuite) TestClarifyWithUser() {
	s.scope.On("ClarifyWithUser", llmtest.Reply(ClarifyWithUser{
		NeedClarification: true,
		Question:          "Which city?",
	}))

	val, err := s.env.ExecuteActivity(s.acts.ClarifyWithUser, ClarifyInput{
		Messages: []models.Message{models.NewUserMessage("best coffee shops")},
		Date:     "2026 -10 -16",
	})
	s.Require().NoError(err)

	var out ClarifyResult
	s.Require().NoError(val.Get(&out))
	s.True(out.NeedClarification)
	s.Equal("Which city?", out.Question)

	calls := s.scope.Calls()
	s.Require().Len(calls, 1)
	s.Require().Len(calls[0].Messages, 1)
	s.Contains(calls[0].Messages[0].Content, "Human: best coffee shops")
	s.Contains(calls[0].Messages[0].Content, "2026 -10 -16")
}

func (s *ActivitiesTestSuite) TestScopeFailuresAreScopeControllerErrors() {
	s.scope.On("ClarifyWithUser", llmtest.Fail(&models.ModelBackendError{Op: "scope", Err: errors.New("401")}))
	s.scope.On("ResearchQuestion", llmtest.Fail(&models.ModelBackendError{Op: "scope", Err: errors.New("timeout")}))

	_, err := s.env.ExecuteActivity(s.acts.ClarifyWithUser, ClarifyInput{})
	s.requireAppErrorType(err, models.ErrTypeScopeController)

	_, err = s.env.ExecuteActivity(s.acts.WriteResearchBrief, WriteBriefInput{})
	s.requireAppErrorType(err, models.ErrTypeScopeController)
}

func (s *ActivitiesTestSuite) TestWriteResearchBrief() {
	s.scope.On("ResearchQuestion", llmtest.Reply(ResearchQuestion{ResearchBrief: "Compare specialty coffee in SF"}))

	val, err := s.env.ExecuteActivity(s.acts.WriteResearchBrief, WriteBriefInput{
		Messages: []models.Message{
			models.NewUserMessage("best coffee shops in SF"),
			models.NewAssistantMessage("I will research SF coffee shops."),
		},
	})
	s.Require().NoError(err)
	var out WriteBriefResult
	s.Require().NoError(val.Get(&out))
	s.Equal("Compare specialty coffee in SF", out.ResearchBrief)
	s.Contains(s.scope.Calls()[0].Messages[0].Content, "AI: I will research SF coffee shops.")
}

func (s *ActivitiesTestSuite) TestResearcherDecideAssignsUniqueIDs() {
	s.research.On("ResearcherOutput", llmtest.Reply(ResearcherOutput{
		ResearchMessage: "searching",
		ToolCalls: []ModelToolCall{
			{ID: "a", Name: "echo", Args: map[string]interface{}{"query": "one"}},
			{ID: "a", Name: "echo", Args: map[string]interface{}{"query": "two"}},
			{ID: "", Name: "echo"},
		},
	}))

	val, err := s.env.ExecuteActivity(s.acts.ResearcherDecide, DecideInput{
		Messages: []models.Message{models.NewUserMessage("coffee")},
		Date:     "today",
	})
	s.Require().NoError(err)
	var out DecideResult
	s.Require().NoError(val.Get(&out))

	s.Equal(models.RoleAssistant, out.Message.Role)
	s.Equal("searching", out.Message.Content)
	s.Require().Len(out.Message.ToolCalls, 3)
	s.Equal(2, out.Reassigned)

	seen := map[string]bool{}
	for _, c := range out.Message.ToolCalls {
		s.NotEmpty(c.ID)
		s.False(seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		s.NotNil(c.Args)
	}
	s.Equal("a", out.Message.ToolCalls[0].ID)
	s.True(strings.HasPrefix(out.Message.ToolCalls[1].ID, "call_"))

	calls := s.research.Calls()
	s.Require().Len(calls, 1)
	s.Equal(models.RoleSystem, calls[0].Messages[0].Role)
	s.Contains(calls[0].Messages[0].Content, "<tool_name> echo <tool_name>")
	s.Contains(calls[0].Messages[0].Content, "today")
	s.Equal("coffee", calls[0].Messages[1].Content)
}

func (s *ActivitiesTestSuite) TestResearcherDecideBackendError() {
	s.research.On("ResearcherOutput", llmtest.Fail(&models.ModelBackendError{Op: "research", Err: errors.New("503")}))
	_, err := s.env.ExecuteActivity(s.acts.ResearcherDecide, DecideInput{})
	s.requireAppErrorType(err, models.ErrTypeModelBackend)
}

func (s *ActivitiesTestSuite) TestExecuteTool() {
	tests := []struct {
		name    string
		call    models.ToolCall
		content string
	}{
		{"success", models.ToolCall{ID: "c1", Name: "echo", Args: map[string]interface{}{"query": "q"}}, "found: q"},
		{"capability failure", models.ToolCall{ID: "c2", Name: "broken"}, `Error: tool "broken" failed: quota exceeded`},
		{"unknown tool", models.ToolCall{ID: "c3", Name: "missing"}, `Error: unknown tool: "missing"`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			val, err := s.env.ExecuteActivity(s.acts.ExecuteTool, ExecuteToolInput{Call: tt.call})
			s.Require().NoError(err)
			var out models.ToolResult
			s.Require().NoError(val.Get(&out))
			s.Equal(tt.call.ID, out.ToolCallID)
			s.Equal(tt.call.Name, out.Name)
			s.Equal(tt.content, out.Content)
		})
	}
}

func (s *ActivitiesTestSuite) TestCompressResearch() {
	s.research.On("CompressedResearch", llmtest.Reply(CompressedResearch{Summary: "Findings [1]"}))

	thread := []models.Message{
		models.NewUserMessage("coffee in SF"),
		models.NewAssistantMessage("", models.ToolCall{ID: "c1", Name: "echo"}),
		models.ToolResult{ToolCallID: "c1", Name: "echo", Content: "found"}.Message(),
	}
	val, err := s.env.ExecuteActivity(s.acts.CompressResearch, CompressInput{Topic: "coffee in SF", Messages: thread, Date: "today"})
	s.Require().NoError(err)
	var out CompressResult
	s.Require().NoError(val.Get(&out))
	s.Equal("Findings [1]", out.Summary)

	sent := s.research.Calls()[0].Messages
	s.Require().Len(sent, len(thread)+2)
	s.Equal(models.RoleSystem, sent[0].Role)
	s.Equal(thread, sent[1:len(sent)-1])
	s.Equal(models.RoleUser, sent[len(sent)-1].Role)
	s.Contains(sent[len(sent)-1].Content, "RESEARCH TOPIC: coffee in SF")
}

func (s *ActivitiesTestSuite) TestSupervisorDecide() {
	s.research.On("SupervisorOutput", func(messages []models.Message, schema llm.Schema) (any, error) {
		return SupervisorOutput{
			Message:   "delegate",
			ToolCalls: []ModelToolCall{{ID: "r1", Name: "ConductResearch", Args: map[string]interface{}{"research_topic": "SF coffee"}}},
		}, nil
	})

	val, err := s.env.ExecuteActivity(s.acts.SupervisorDecide, SupervisorDecideInput{
		Messages:                 []models.Message{models.NewUserMessage("brief")},
		MaxConcurrentResearchers: 3,
		MaxIterations:            6,
	})
	s.Require().NoError(err)
	var out DecideResult
	s.Require().NoError(val.Get(&out))
	s.Require().Len(out.Message.ToolCalls, 1)
	topic, ok := out.Message.ToolCalls[0].StringArg("research_topic")
	s.True(ok)
	s.Equal("SF coffee", topic)

	system := s.research.Calls()[0].Messages[0].Content
	s.Contains(system, "<tool_name> ConductResearch <tool_name>")
	s.Contains(system, "<tool_name> ResearchComplete <tool_name>")
	s.Contains(system, "at most 3 parallel")
}

func TestActivitiesTestSuite(t *testing.T) {
	suite.Run(t, new(ActivitiesTestSuite))
}

func TestNewActivitiesRequiresModels(t *testing.T) {
	_, err := NewActivities(Dependencies{}, nil)
	assert.Error(t, err)

	acts, err := NewActivities(Dependencies{ScopeModel: llmtest.New(), ResearchModel: llmtest.New()}, nil)
	require.NoError(t, err)
	assert.NotNil(t, acts.tools)
	assert.NotNil(t, acts.prompts)
}
