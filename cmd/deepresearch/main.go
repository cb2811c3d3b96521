// Command deepresearch submits research runs to a deep research worker and
// serves them over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/config"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/engine"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/mcpserver"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/temporal"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

const dialAttempts = 3

var (
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

// researchRunner is the engine surface the commands drive.
type researchRunner interface {
	mcpserver.Runner
	RunSupervisor(ctx context.Context, brief string, cfg workflows.SupervisorConfig) (workflows.SupervisorResult, error)
}

// connect dials Temporal and returns a runner plus its cleanup. Tests replace it.
var connect = func(ctx context.Context) (researchRunner, func(), error) {
	c, err := temporal.Dial(ctx, temporal.DialOptions{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Attempts:  dialAttempts,
	}, logger)
	if err != nil {
		return nil, func() {}, err
	}
	return engine.New(c, cfg.Temporal.TaskQueue, logger), c.Close, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deepresearch",
		Short:         "Run multi-agent deep research on a Temporal worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			l, err := config.NewLogger(loaded.Logging)
			if err != nil {
				return err
			}
			cfg, logger = loaded, l
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $DEEPRESEARCH_CONFIG)")

	root.AddCommand(newRunCmd(), newScopeCmd(), newSuperviseCmd(), newMCPCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes cancelled runs (130) from failures (1).
func exitCode(err error) int {
	if models.ErrorType(err) == models.ErrTypeCancelled {
		return 130
	}
	return 1
}
