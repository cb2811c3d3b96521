package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/mcpserver"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

type runFlags struct {
	maxIterations           int
	maxConcurrent           int
	maxResearcherIterations int
	failurePolicy           string
	jsonOutput              bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "maximum supervisor decisions")
	cmd.Flags().IntVar(&f.maxConcurrent, "max-concurrent-researchers", 0, "maximum researchers running at once")
	cmd.Flags().IntVar(&f.maxResearcherIterations, "max-researcher-iterations", 0, "maximum decisions per researcher")
	cmd.Flags().StringVar(&f.failurePolicy, "failure-policy", "", "isolate or abort when a researcher fails")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print the result as JSON")
}

// supervisorConfig starts from the configured defaults and applies only the
// flags the user set, so an explicit zero is honoured.
func (f *runFlags) supervisorConfig(cmd *cobra.Command) workflows.SupervisorConfig {
	sc := cfg.Supervisor.Workflow()
	if cmd.Flags().Changed("max-iterations") {
		sc.MaxIterations = f.maxIterations
	}
	if cmd.Flags().Changed("max-concurrent-researchers") {
		sc.MaxConcurrentResearchers = f.maxConcurrent
	}
	if cmd.Flags().Changed("max-researcher-iterations") {
		sc.MaxResearcherIterations = f.maxResearcherIterations
	}
	if cmd.Flags().Changed("failure-policy") {
		sc.FailurePolicy = workflows.FailurePolicy(f.failurePolicy)
	}
	return sc
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <question>",
		Short: "Scope a question and research it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			query := strings.Join(args, " ")
			logger.Info("Starting deep research", zap.String("query", query))
			result, err := runner.Run(cmd.Context(), []models.Message{models.NewUserMessage(query)}, flags.supervisorConfig(cmd))
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			if result.Supervisor == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Clarification needed: "+result.Scope.Question)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), mcpserver.FormatReport(*result.Supervisor))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newScopeCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "scope <question>",
		Short: "Turn a question into a research brief without researching it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			result, err := runner.RunScope(cmd.Context(), []models.Message{models.NewUserMessage(strings.Join(args, " "))})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			if result.NeedsClarification {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Clarification needed: "+result.Question)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.ResearchBrief)
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	return cmd
}

func newSuperviseCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "supervise <research brief>",
		Short: "Research an existing brief, skipping the scope step",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			result, err := runner.RunSupervisor(cmd.Context(), strings.Join(args, " "), flags.supervisorConfig(cmd))
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), mcpserver.FormatReport(result))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve deep_research and scope_research as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, done, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			logger.Info("Serving MCP over stdio")
			return mcpserver.Serve(mcpserver.New(runner, cfg.Supervisor.Workflow()))
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
