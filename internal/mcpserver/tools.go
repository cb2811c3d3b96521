// Package mcpserver exposes research runs as MCP tools over stdio.
//
// Each tool follows the same shape: a struct holding its dependencies,
// Definition() for the schema and Handle() for the call.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/engine"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

// Runner is the part of engine.Client the tools need.
type Runner interface {
	Run(ctx context.Context, messages []models.Message, cfg workflows.SupervisorConfig) (workflows.DeepResearchResult, error)
	RunScope(ctx context.Context, messages []models.Message) (workflows.ScopeResult, error)
}

var _ Runner = (*engine.Client)(nil)

// DeepResearchTool handles the deep_research MCP tool.
type DeepResearchTool struct {
	runner   Runner
	defaults workflows.SupervisorConfig
}

func NewDeepResearchTool(runner Runner, defaults workflows.SupervisorConfig) *DeepResearchTool {
	return &DeepResearchTool{runner: runner, defaults: defaults}
}

// Definition returns the MCP tool definition for deep_research.
func (t *DeepResearchTool) Definition() mcp.Tool {
	return mcp.NewTool("deep_research",
		mcp.WithDescription(
			"Research a question in depth. The question is scoped into a research brief, "+
				"split into sub-topics researched in parallel, and returned as compressed notes. "+
				"If the question is ambiguous a clarification question is returned instead.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The research question"),
		),
		mcp.WithNumber("max_iterations",
			mcp.Description(fmt.Sprintf("Maximum supervisor decisions (default: %d)", t.defaults.MaxIterations)),
		),
		mcp.WithNumber("max_concurrent_researchers",
			mcp.Description(fmt.Sprintf("Maximum researchers running at once (default: %d)", t.defaults.MaxConcurrentResearchers)),
		),
	)
}

// Handle processes the deep_research tool call.
func (t *DeepResearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	cfg := t.defaults
	cfg.MaxIterations = intArg(req, "max_iterations", cfg.MaxIterations)
	cfg.MaxConcurrentResearchers = intArg(req, "max_concurrent_researchers", cfg.MaxConcurrentResearchers)

	result, err := t.runner.Run(ctx, []models.Message{models.NewUserMessage(query)}, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("research failed: %v", err)), nil
	}
	if result.Scope.NeedsClarification || result.Supervisor == nil {
		return mcp.NewToolResultText(formatClarification(result.Scope)), nil
	}
	return mcp.NewToolResultText(FormatReport(*result.Supervisor)), nil
}

// ScopeTool handles the scope_research MCP tool.
type ScopeTool struct {
	runner Runner
}

func NewScopeTool(runner Runner) *ScopeTool {
	return &ScopeTool{runner: runner}
}

// Definition returns the MCP tool definition for scope_research.
func (t *ScopeTool) Definition() mcp.Tool {
	return mcp.NewTool("scope_research",
		mcp.WithDescription(
			"Turn a question into a research brief without running the research. "+
				"Returns a clarification question when the request is ambiguous.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The research question"),
		),
	)
}

// Handle processes the scope_research tool call.
func (t *ScopeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	result, err := t.runner.RunScope(ctx, []models.Message{models.NewUserMessage(query)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoping failed: %v", err)), nil
	}
	if result.NeedsClarification {
		return mcp.NewToolResultText(formatClarification(result)), nil
	}
	return mcp.NewToolResultText("## Research brief\n\n" + result.ResearchBrief), nil
}

// FormatReport renders supervisor output as markdown.
func FormatReport(r workflows.SupervisorResult) string {
	var b strings.Builder
	b.WriteString("## Research brief\n\n")
	b.WriteString(r.ResearchBrief)
	fmt.Fprintf(&b, "\n\n## Notes (%d)\n\n", len(r.Notes))
	if len(r.Notes) == 0 {
		b.WriteString("No research notes were produced.\n")
	}
	for i, note := range r.Notes {
		fmt.Fprintf(&b, "### %d\n\n%s\n\n", i+1, note)
	}
	fmt.Fprintf(&b, "---\nstop reason: %s | iterations: %d", r.StopReason, r.Iterations)
	if len(r.FailedTopics) > 0 {
		fmt.Fprintf(&b, "\nfailed topics: %s", strings.Join(r.FailedTopics, "; "))
	}
	return b.String()
}

func formatClarification(s workflows.ScopeResult) string {
	return "Clarification needed: " + s.Question
}

// intArg extracts an integer argument (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
