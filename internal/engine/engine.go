// Package engine starts research runs on Temporal and waits for their results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

const cancelTimeout = 10 * time.Second

// Client runs the scope controller, the supervisor, or both, and maps every
// failure onto *models.RunError.
type Client struct {
	temporal  client.Client
	taskQueue string
	logger    *zap.Logger
}

// New wraps a connected Temporal client. An empty taskQueue uses the default.
func New(c client.Client, taskQueue string, logger *zap.Logger) *Client {
	if taskQueue == "" {
		taskQueue = constants.TaskQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{temporal: c, taskQueue: taskQueue, logger: logger}
}

// RunScope either asks a clarification question or returns a research brief.
func (c *Client) RunScope(ctx context.Context, messages []models.Message) (workflows.ScopeResult, error) {
	if len(messages) == 0 {
		return workflows.ScopeResult{}, &models.RunError{
			Kind:    models.ErrTypeScopeController,
			Message: "at least one message is required",
		}
	}
	return execute[workflows.ScopeResult](ctx, c, constants.ScopeWorkflow, "scope", workflows.ScopeInput{
		Messages: messages,
	})
}

// RunSupervisor researches brief under cfg and returns the aggregated notes.
func (c *Client) RunSupervisor(ctx context.Context, brief string, cfg workflows.SupervisorConfig) (workflows.SupervisorResult, error) {
	if strings.TrimSpace(brief) == "" {
		return workflows.SupervisorResult{}, Classify(&models.ConfigurationError{Setting: "research_brief", Reason: "must not be empty"})
	}
	if _, err := cfg.Normalize(); err != nil {
		return workflows.SupervisorResult{}, Classify(err)
	}
	return execute[workflows.SupervisorResult](ctx, c, constants.SupervisorWorkflow, "supervisor", workflows.SupervisorInput{
		ResearchBrief: brief,
		Config:        cfg,
	})
}

// Run scopes the conversation and, when a brief comes out, researches it.
func (c *Client) Run(ctx context.Context, messages []models.Message, cfg workflows.SupervisorConfig) (workflows.DeepResearchResult, error) {
	if len(messages) == 0 {
		return workflows.DeepResearchResult{}, &models.RunError{
			Kind:    models.ErrTypeScopeController,
			Message: "at least one message is required",
		}
	}
	if _, err := cfg.Normalize(); err != nil {
		return workflows.DeepResearchResult{}, Classify(err)
	}
	return execute[workflows.DeepResearchResult](ctx, c, constants.DeepResearchWorkflow, "deep-research", workflows.DeepResearchInput{
		Messages: messages,
		Config:   cfg,
	})
}

func execute[T any](ctx context.Context, c *Client, workflowType, idPrefix string, input interface{}) (T, error) {
	var out T
	start := time.Now()
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("%s-%s", idPrefix, uuid.NewString()),
		TaskQueue: c.taskQueue,
	}

	metrics.RunsStarted.WithLabelValues(workflowType).Inc()
	run, err := c.temporal.ExecuteWorkflow(ctx, opts, workflowType, input)
	if err != nil {
		c.logger.Error("Failed to start workflow", zap.String("workflow_type", workflowType), zap.Error(err))
		runErr := Classify(fmt.Errorf("start %s: %w", workflowType, err))
		c.record(workflowType, start, runErr)
		return out, runErr
	}
	c.logger.Info("Research run started",
		zap.String("workflow_type", workflowType),
		zap.String("workflow_id", run.GetID()),
	)

	err = run.Get(ctx, &out)
	if err != nil && ctx.Err() != nil {
		// The caller gave up; stop the run and its researchers too.
		cancelCtx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
		defer cancel()
		cerr := c.temporal.CancelWorkflow(cancelCtx, run.GetID(), run.GetRunID())
		var notFound *serviceerror.NotFound
		switch {
		case cerr == nil:
			c.logger.Info("Cancelled research run", zap.String("workflow_id", run.GetID()))
		case errors.As(cerr, &notFound):
			// Already closed.
		default:
			c.logger.Warn("Failed to cancel workflow", zap.String("workflow_id", run.GetID()), zap.Error(cerr))
		}
	}

	if err != nil {
		runErr := Classify(err)
		c.logger.Warn("Research run failed",
			zap.String("workflow_type", workflowType),
			zap.String("workflow_id", run.GetID()),
			zap.String("kind", models.ErrorType(runErr)),
			zap.Error(err),
		)
		c.record(workflowType, start, runErr)
		return out, runErr
	}

	c.record(workflowType, start, nil)
	return out, nil
}

func (c *Client) record(workflowType string, start time.Time, err error) {
	outcome := "completed"
	if err != nil {
		outcome = strings.ToLower(models.ErrorType(err))
	}
	metrics.RunsCompleted.WithLabelValues(workflowType, outcome).Inc()
	metrics.RunDuration.WithLabelValues(workflowType).Observe(time.Since(start).Seconds())
}

// IsCancelled reports whether err is a cancelled run.
func IsCancelled(err error) bool {
	return errors.Is(err, models.ErrCancelled)
}
