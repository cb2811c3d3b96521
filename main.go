package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/activities"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/cache"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/config"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/health"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/interceptors"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/prompts"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/ratecontrol"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/registry"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/temporal"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tracing"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Initialize(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}

	// Admin endpoints come up first so probes answer while Temporal is dialled.
	hm := health.NewManager(logger)
	mux := http.NewServeMux()
	health.NewHTTPHandler(hm, logger).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	admin := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Admin.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Admin HTTP server listening", zap.Int("port", cfg.Admin.Port))
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin HTTP server failed", zap.Error(err))
		}
	}()

	researchModel, err := newBackend(cfg.Model, "research", logger)
	if err != nil {
		logger.Fatal("Failed to configure research model", zap.Error(err))
	}
	scopeModel, err := newBackend(cfg.ScopeModel, "scope", logger)
	if err != nil {
		logger.Fatal("Failed to configure scope model", zap.Error(err))
	}

	catalogue, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		logger.Fatal("Failed to load prompts", zap.Error(err))
	}

	var toolCache *cache.ToolCache
	if cfg.Cache.Enabled {
		toolCache, err = cache.Connect(ctx, cfg.Cache, logger)
		if err != nil {
			logger.Warn("Tool cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer toolCache.Close()
			_ = hm.RegisterChecker(health.NewRedisHealthChecker(toolCache.Store()))
		}
	}

	toolRegistry, err := newToolRegistry(cfg, researchModel, catalogue, toolCache, logger)
	if err != nil {
		logger.Fatal("Failed to register tools", zap.Error(err))
	}

	acts, err := activities.NewActivities(activities.Dependencies{
		ScopeModel:    scopeModel,
		ResearchModel: researchModel,
		Tools:         toolRegistry,
		Prompts:       catalogue,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create activities", zap.Error(err))
	}

	tClient, err := temporal.Dial(ctx, temporal.DialOptions{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer tClient.Close()
	_ = hm.RegisterChecker(health.NewTemporalHealthChecker(tClient))

	w := worker.New(tClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.Temporal.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.Temporal.MaxConcurrentWorkflows,
	})
	reg := registry.NewDeepResearchRegistry(acts, logger)
	if err := reg.RegisterWorkflows(w); err != nil {
		logger.Fatal("Failed to register workflows", zap.Error(err))
	}
	if err := reg.RegisterActivities(w); err != nil {
		logger.Fatal("Failed to register activities", zap.Error(err))
	}
	if err := w.Start(); err != nil {
		logger.Fatal("Failed to start worker", zap.Error(err))
	}
	logger.Info("Temporal worker started",
		zap.String("queue", cfg.Temporal.TaskQueue),
		zap.Strings("tools", toolNames(toolRegistry)),
	)

	<-ctx.Done()
	logger.Info("Shutting down deep research worker")

	w.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Admin HTTP server shutdown failed", zap.Error(err))
	}
	if shutdownTracing != nil {
		_ = shutdownTracing(shutdownCtx)
	}
}

func newBackend(mc config.ModelConfig, operation string, logger *zap.Logger) (*llm.OpenAIBackend, error) {
	key, err := mc.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	limiter := ratecontrol.NewLimiter(ratecontrol.LimitForProvider(mc.Provider, mc.RateLimit))
	return llm.NewOpenAIBackend(llm.OpenAIConfig{
		APIKey:      key,
		BaseURL:     mc.BaseURL,
		Model:       mc.Name,
		Temperature: mc.Temperature,
		Timeout:     mc.Timeout,
		Operation:   operation,
	}, limiter, logger)
}

// newToolRegistry registers think_tool and, when enabled, web search. A nil
// toolCache leaves search uncached.
func newToolRegistry(cfg *config.Config, summaryModel llm.Backend, catalogue *prompts.Catalogue, toolCache *cache.ToolCache, logger *zap.Logger) (*tools.Registry, error) {
	r := tools.NewRegistry()
	if err := r.Register(string(tools.Think), tools.ThinkDescription, tools.ThinkTool{}); err != nil {
		return nil, err
	}
	if !cfg.Search.Enabled {
		logger.Info("Web search disabled")
		return r, nil
	}

	key, err := cfg.Search.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	var summarizer tools.Summarizer
	if cfg.Search.Summarize {
		summarizer = tools.NewModelSummarizer(summaryModel, func(content string) (string, error) {
			return catalogue.Render(prompts.SummarizeWebpage, prompts.Data{
				Content: content,
				Date:    prompts.FormatDate(time.Now()),
			})
		})
	}
	search := tools.NewTavilySearch(
		tools.SearchConfig{
			APIKey:     key,
			BaseURL:    cfg.Search.BaseURL,
			MaxResults: cfg.Search.MaxResults,
			Timeout:    cfg.Search.Timeout,
		},
		circuitbreaker.NewHTTPWrapper(&http.Client{
			Timeout:   cfg.Search.Timeout,
			Transport: interceptors.NewActivityRoundTripper(nil),
		}, tools.SearchToolName, circuitbreaker.HTTPConfig(), logger),
		ratecontrol.NewLimiter(ratecontrol.LimitForProvider("tavily", cfg.Search.RateLimit)),
		summarizer,
		logger,
	)

	var capability tools.Capability = search
	if toolCache != nil {
		capability = toolCache.Wrap(tools.SearchToolName, search)
	}
	if err := r.Register(tools.SearchToolName, tools.SearchDescription, capability); err != nil {
		return nil, err
	}
	return r, nil
}

func toolNames(r *tools.Registry) []string {
	descs := r.Describe()
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, d.Name)
	}
	return names
}
