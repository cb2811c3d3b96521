package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

type fakeRunner struct {
	cfg      workflows.SupervisorConfig
	brief    string
	messages []models.Message
	result   workflows.DeepResearchResult
	scope    workflows.ScopeResult
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, messages []models.Message, cfg workflows.SupervisorConfig) (workflows.DeepResearchResult, error) {
	f.messages, f.cfg = messages, cfg
	return f.result, f.err
}

func (f *fakeRunner) RunScope(ctx context.Context, messages []models.Message) (workflows.ScopeResult, error) {
	f.messages = messages
	return f.scope, f.err
}

func (f *fakeRunner) RunSupervisor(ctx context.Context, brief string, cfg workflows.SupervisorConfig) (workflows.SupervisorResult, error) {
	f.brief, f.cfg = brief, cfg
	if f.result.Supervisor == nil {
		return workflows.SupervisorResult{}, f.err
	}
	return *f.result.Supervisor, f.err
}

func execute(t *testing.T, runner *fakeRunner, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DEEPRESEARCH_CONFIG", "")
	configPath = ""

	prev := connect
	connect = func(ctx context.Context) (researchRunner, func(), error) {
		return runner, func() {}, nil
	}
	t.Cleanup(func() { connect = prev })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommandAppliesOnlyChangedFlags(t *testing.T) {
	runner := &fakeRunner{result: workflows.DeepResearchResult{
		Supervisor: &workflows.SupervisorResult{ResearchBrief: "brief", Notes: []string{"finding"}, StopReason: workflows.StopResearchComplete},
	}}

	out, err := execute(t, runner, "run", "--max-iterations", "0", "how", "do", "tides", "work")
	require.NoError(t, err)

	assert.Equal(t, "how do tides work", runner.messages[0].Content)
	assert.Equal(t, 0, runner.cfg.MaxIterations)
	assert.Equal(t, workflows.DefaultMaxConcurrentResearchers, runner.cfg.MaxConcurrentResearchers)
	assert.Contains(t, out, "finding")
	assert.Contains(t, out, "stop reason: research_complete")
}

func TestRunCommandPrintsClarification(t *testing.T) {
	runner := &fakeRunner{result: workflows.DeepResearchResult{
		Scope: workflows.ScopeResult{NeedsClarification: true, Question: "Which coast?"},
	}}

	out, err := execute(t, runner, "run", "tides")
	require.NoError(t, err)
	assert.Equal(t, "Clarification needed: Which coast?\n", out)
}

func TestScopeCommandJSON(t *testing.T) {
	runner := &fakeRunner{scope: workflows.ScopeResult{ResearchBrief: "Explain tidal forcing."}}

	out, err := execute(t, runner, "scope", "--json", "tides")
	require.NoError(t, err)

	var got workflows.ScopeResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Explain tidal forcing.", got.ResearchBrief)
}

func TestSuperviseCommand(t *testing.T) {
	runner := &fakeRunner{result: workflows.DeepResearchResult{
		Supervisor: &workflows.SupervisorResult{ResearchBrief: "Explain tidal forcing.", StopReason: workflows.StopNoToolCalls},
	}}

	_, err := execute(t, runner, "supervise", "--max-concurrent-researchers", "1", "--failure-policy", "abort", "Explain", "tidal", "forcing.")
	require.NoError(t, err)
	assert.Equal(t, "Explain tidal forcing.", runner.brief)
	assert.Equal(t, 1, runner.cfg.MaxConcurrentResearchers)
	assert.Equal(t, workflows.FailureAbort, runner.cfg.FailurePolicy)
}

func TestRunCommandReturnsRunError(t *testing.T) {
	runner := &fakeRunner{err: &models.RunError{Kind: models.ErrTypeCancelled, Message: "research run cancelled", Cause: models.ErrCancelled}}

	_, err := execute(t, runner, "run", "tides")
	require.Error(t, err)
	assert.Equal(t, 130, exitCode(err))
}

func TestCommandsRequireArguments(t *testing.T) {
	_, err := execute(t, &fakeRunner{}, "run")
	assert.Error(t, err)
	_, err = execute(t, &fakeRunner{}, "mcp", "extra")
	assert.Error(t, err)
}
