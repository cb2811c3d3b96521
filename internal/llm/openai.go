package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tracing"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "x-ai/grok-4-fast:free"
	DefaultTemperature = 0.3
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// Operation labels metrics and spans, e.g. "scope" or "research".
	Operation string
}

// OpenAIBackend implements Backend over any OpenAI-compatible endpoint using
// JSON-schema response formats.
type OpenAIBackend struct {
	client  openai.Client
	cfg     OpenAIConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIBackend builds a backend. The API key must already be resolved;
// an empty key is a configuration error. The SDK's own retries are disabled.
func NewOpenAIBackend(cfg OpenAIConfig, limiter *rate.Limiter, logger *zap.Logger) (*OpenAIBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &models.ConfigurationError{Setting: "model.api_key", Reason: "no API key configured"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Operation == "" {
		cfg.Operation = "structured_call"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIBackend{
		client:  openai.NewClient(opts...),
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Model returns the configured model name.
func (b *OpenAIBackend) Model() string { return b.cfg.Model }

// StructuredCall implements Backend.
func (b *OpenAIBackend) StructuredCall(ctx context.Context, messages []models.Message, schema Schema, out any) (err error) {
	ctx, span := tracing.StartSpan(ctx, "llm.structured_call",
		attribute.String("llm.model", b.cfg.Model),
		attribute.String("llm.operation", b.cfg.Operation),
		attribute.String("llm.schema", schema.Name),
	)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ModelCalls.WithLabelValues(b.cfg.Operation, status).Inc()
		metrics.ModelCallDuration.WithLabelValues(b.cfg.Operation).Observe(time.Since(start).Seconds())
		tracing.End(span, err)
	}()

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return &models.ModelBackendError{Op: b.cfg.Operation, Err: err}
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.cfg.Model),
		Messages: toChatMessages(messages),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schema.Name,
					Schema: schema.Definition,
				},
			},
		},
		Temperature: openai.Float(b.cfg.Temperature),
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			b.logger.Warn("Model backend returned an error",
				zap.String("operation", b.cfg.Operation),
				zap.Int("status", apiErr.StatusCode),
			)
		}
		return &models.ModelBackendError{Op: b.cfg.Operation, Err: err}
	}
	if len(resp.Choices) == 0 {
		return &models.ModelBackendError{Op: b.cfg.Operation, Err: errors.New("response contained no choices")}
	}

	content := resp.Choices[0].Message.Content
	if err := decodeStructured(content, out); err != nil {
		b.logger.Debug("Unparseable structured response",
			zap.String("schema", schema.Name),
			zap.Int("length", len(content)),
		)
		return &models.ModelBackendError{Op: b.cfg.Operation, Err: err}
	}
	return nil
}

// toChatMessages maps a thread onto chat completion messages. Tool results are
// sent as user turns and assistant tool calls are rendered as JSON text, since
// the decision is itself a structured output rather than native tool calling.
func toChatMessages(messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(renderAssistant(m)))
		case models.RoleTool:
			out = append(out, openai.UserMessage(fmt.Sprintf("[tool result %s (%s)]\n%s", m.ToolCallID, m.Name, m.Content)))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func renderAssistant(m models.Message) string {
	if !m.HasToolCalls() {
		return m.Content
	}
	calls, err := json.Marshal(m.ToolCalls)
	if err != nil {
		return m.Content
	}
	if m.Content == "" {
		return fmt.Sprintf("tool_calls: %s", calls)
	}
	return fmt.Sprintf("%s\ntool_calls: %s", m.Content, calls)
}
